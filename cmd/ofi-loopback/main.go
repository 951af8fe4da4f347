// Command ofi-loopback is a thin demonstrator of this module's send/recv
// path: it opens a fabric against the loopback stub provider (or a native
// provider, if built with the ofi_native tag and one is installed), posts a
// receive, sends a message to itself through an address vector, and prints
// the completion it gets back.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	ofi "github.com/ofi-go/ofi"
	"github.com/ofi-go/ofi/internal/logging"
)

func main() {
	var (
		provider = flag.String("provider", "", "libfabric provider name (empty: auto-select, loopback stub if none linked in)")
		message  = flag.String("message", "hello from ofi-loopback", "payload to send to self")
		verbose  = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	if err := run(*provider, *message, logger); err != nil {
		logger.Error("loopback demo failed", "error", err)
		os.Exit(1)
	}
}

func run(providerName, message string, logger *logging.Logger) error {
	fabric, err := ofi.Open(ofi.OpenParams{
		ProviderName: providerName,
		EPType:       ofi.EndpointTypeRDM,
		Caps:         ofi.CapMsg.Union(ofi.CapSend).Union(ofi.CapRecv),
	})
	if err != nil {
		return fmt.Errorf("open fabric: %w", err)
	}
	defer fabric.Close()

	logger.Info("fabric opened", "provider", fabric.Name(), "traits", fabric.Traits().Name)

	domain := fabric.Domain()

	cq, err := domain.OpenCompletionQueue(16)
	if err != nil {
		return fmt.Errorf("open completion queue: %w", err)
	}
	defer cq.Close()

	av, err := domain.OpenAddressVector(1)
	if err != nil {
		return fmt.Errorf("open address vector: %w", err)
	}
	defer av.Close()

	ep, err := domain.OpenEndpoint(ofi.EndpointParams{
		EPType: ofi.EndpointTypeRDM,
		Caps:   ofi.CapMsg.Union(ofi.CapSend).Union(ofi.CapRecv),
	})
	if err != nil {
		return fmt.Errorf("open endpoint: %w", err)
	}
	defer ep.Close()

	if err := ep.Bind(cq, ofi.BindTransmit.Union(ofi.BindRecv)); err != nil {
		return fmt.Errorf("bind completion queue: %w", err)
	}
	if err := ep.BindAddressVector(av); err != nil {
		return fmt.Errorf("bind address vector: %w", err)
	}
	if err := ep.Enable(); err != nil {
		return fmt.Errorf("enable endpoint: %w", err)
	}

	self, err := ofi.NewInetAddress(net.IPv4(127, 0, 0, 1), 0)
	if err != nil {
		return fmt.Errorf("build loopback address: %w", err)
	}
	selfAddr, err := av.Insert(self)
	if err != nil {
		return fmt.Errorf("insert self address: %w", err)
	}

	recvBuf := make([]byte, 256)
	recvCtx := ofi.NewContext()
	if err := ep.Recv(recvBuf, nil, selfAddr, recvCtx); err != nil {
		return fmt.Errorf("post recv: %w", err)
	}

	sendBuf := []byte(message)
	sendCtx := ofi.NewContext()
	if err := ep.Send(sendBuf, nil, selfAddr, sendCtx); err != nil {
		return fmt.Errorf("post send: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	deadline := time.After(5 * time.Second)
	seen := 0
	for seen < 2 {
		select {
		case <-sigCh:
			return fmt.Errorf("interrupted waiting for completions")
		case <-deadline:
			return fmt.Errorf("timed out waiting for completions")
		default:
		}

		comp, err := cq.Poll()
		if err != nil {
			return fmt.Errorf("poll completion queue: %w", err)
		}
		if comp == nil {
			time.Sleep(time.Millisecond)
			continue
		}
		seen++
		logger.Info("completion", "len", comp.Len)
	}

	fmt.Printf("received: %s\n", recvBuf[:len(sendBuf)])
	return nil
}
