// Command harness drives a multi-process soak test of the kaleidoscope
// node image: it starts a configurable number of containers on a private
// Docker network, lets them run for a fixed duration, logs each
// container's state, then tears everything down. It passes the nodes no
// neighbors and no -advertise-interval flag, and the node binary has no
// transport between containers, so the nodes do not send advertisements
// to each other. It talks to the Docker daemon directly through the
// official SDK client rather than shelling out.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
)

func main() {
	imageName := flag.String("image", "kaleidoscope-node:latest", "image to soak-test")
	count := flag.Int("count", 5, "number of node containers to start")
	networkName := flag.String("network", "kaleidoscope-soak", "docker network name")
	duration := flag.Duration("duration", 30*time.Second, "how long to let the soak run before tearing down")
	keep := flag.Bool("keep", false, "leave containers and network running after the soak completes")
	flag.Parse()

	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		log.Fatalf("harness: failed to connect to docker: %v", err)
	}
	defer cli.Close()

	ctx := context.Background()

	if err := ensureImage(ctx, cli, *imageName); err != nil {
		log.Fatalf("harness: %v", err)
	}

	netID, err := ensureNetwork(ctx, cli, *networkName)
	if err != nil {
		log.Fatalf("harness: %v", err)
	}

	ids := make([]string, 0, *count)
	defer func() {
		if *keep {
			log.Printf("harness: --keep set, leaving %d containers and network %q running", len(ids), *networkName)
			return
		}
		teardown(ctx, cli, ids, netID)
	}()

	for i := 0; i < *count; i++ {
		name := fmt.Sprintf("kaleidoscope-soak-%d", i)
		id, err := startNode(ctx, cli, *imageName, name, *networkName)
		if err != nil {
			log.Fatalf("harness: failed to start container %s: %v", name, err)
		}
		ids = append(ids, id)
		log.Printf("harness: started %s (%s)", name, id[:12])
	}

	log.Printf("harness: soaking %d nodes for %s", len(ids), *duration)
	time.Sleep(*duration)

	for _, id := range ids {
		inspected, err := cli.ContainerInspect(ctx, id)
		if err != nil {
			log.Printf("harness: inspect %s failed: %v", id[:12], err)
			continue
		}
		log.Printf("harness: %s state=%s running=%v", id[:12], inspected.State.Status, inspected.State.Running)
	}
}

func ensureImage(ctx context.Context, cli *client.Client, ref string) error {
	if _, err := cli.ImageInspect(ctx, ref); err == nil {
		return nil
	}
	rc, err := cli.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pull image %s: %w", ref, err)
	}
	defer rc.Close()
	if _, err := io.Copy(io.Discard, rc); err != nil {
		return fmt.Errorf("read pull output for %s: %w", ref, err)
	}
	return nil
}

func ensureNetwork(ctx context.Context, cli *client.Client, name string) (string, error) {
	existing, err := cli.NetworkList(ctx, network.ListOptions{})
	if err != nil {
		return "", fmt.Errorf("list networks: %w", err)
	}
	for _, n := range existing {
		if n.Name == name {
			return n.ID, nil
		}
	}
	created, err := cli.NetworkCreate(ctx, name, network.CreateOptions{Driver: "bridge"})
	if err != nil {
		return "", fmt.Errorf("create network %s: %w", name, err)
	}
	return created.ID, nil
}

func startNode(ctx context.Context, cli *client.Client, imageName, name, networkName string) (string, error) {
	resp, err := cli.ContainerCreate(ctx,
		&container.Config{
			Image: imageName,
			Env:   []string{fmt.Sprintf("NODE_ID=%s", name)},
		},
		&container.HostConfig{
			NetworkMode: container.NetworkMode(networkName),
		},
		nil, nil, name,
	)
	if err != nil {
		return "", err
	}
	if err := cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return "", err
	}
	return resp.ID, nil
}

func teardown(ctx context.Context, cli *client.Client, ids []string, netID string) {
	for _, id := range ids {
		timeout := 5
		if err := cli.ContainerStop(ctx, id, container.StopOptions{Timeout: &timeout}); err != nil {
			log.Printf("harness: stop %s failed: %v", id[:12], err)
		}
		if err := cli.ContainerRemove(ctx, id, container.RemoveOptions{Force: true}); err != nil {
			log.Printf("harness: remove %s failed: %v", id[:12], err)
		}
	}
	if netID != "" {
		if err := cli.NetworkRemove(ctx, netID); err != nil {
			log.Printf("harness: remove network failed: %v", err)
		}
	}
	log.Println("harness: teardown complete")
}
