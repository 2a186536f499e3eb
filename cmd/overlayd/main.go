// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Command overlayd runs one overlay network peer: it wires configuration,
// logging, and metrics into a node.Node and serves /healthz and /metrics
// until told to stop.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/luxfi/crypto/bls"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/luxfi/overlay/address"
	"github.com/luxfi/overlay/api"
	"github.com/luxfi/overlay/blob"
	"github.com/luxfi/overlay/config"
	nolog "github.com/luxfi/overlay/log"
	"github.com/luxfi/overlay/node"
	"github.com/luxfi/overlay/payment"
	"github.com/luxfi/overlay/version"
)

func main() {
	var (
		network   = flag.String("network", "local", "network preset: mainnet, testnet, or local")
		listen    = flag.String("listen", ":8080", "address to serve /healthz and /metrics on")
		namespace = flag.String("namespace", "overlay", "metrics namespace")
		showVer   = flag.Bool("version", false, "print the version and exit")
	)
	flag.Parse()

	if *showVer {
		fmt.Println(version.DefaultVersion().String())
		return
	}

	if err := run(*network, *listen, *namespace); err != nil {
		fmt.Fprintln(os.Stderr, "overlayd:", err)
		os.Exit(1)
	}
}

func run(network, listen, namespace string) error {
	params, err := presetFor(network)
	if err != nil {
		return err
	}

	logger := nolog.NewNoOpLogger()

	genesisSK, err := bls.NewSecretKey()
	if err != nil {
		return fmt.Errorf("generate genesis key: %w", err)
	}
	addr, err := address.Random()
	if err != nil {
		return fmt.Errorf("generate node address: %w", err)
	}

	reg := prometheus.NewRegistry()
	n, err := node.NewNode(node.Config{
		Params:     params,
		Identity:   ids.GenerateTestNodeID(),
		Address:    addr,
		GenesisKey: genesisSK.PublicKey(),
		Log:        logger,
		Namespace:  namespace,
		Registry:   reg,
		Payment:    payment.NoOpHooks{},
		Storage:    blob.NewMemStorage(),
	})
	if err != nil {
		return fmt.Errorf("build node: %w", err)
	}
	defer n.Close()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		report, err := n.Health(r.Context())
		if err != nil {
			_ = api.WriteError(w, http.StatusInternalServerError, err)
			return
		}
		_ = api.WriteSuccess(w, report)
	})

	srv := &http.Server{Addr: listen, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("overlayd listening", "addr", listen, "network", network)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("overlayd shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

func presetFor(network string) (config.Parameters, error) {
	switch network {
	case "mainnet":
		return config.Mainnet(), nil
	case "testnet":
		return config.Testnet(), nil
	case "local", "":
		return config.Local(), nil
	default:
		return config.Parameters{}, fmt.Errorf("unknown network preset %q", network)
	}
}
