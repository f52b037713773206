// Command para-egress is the standalone allowlist CONNECT proxy process that
// a sandboxed-host session's PARA_PROXY_ADDR or a container's network
// configuration points at, for deployments that want the Network Egress
// Filter running as its own process rather than in-process inside the CLI.
package main

import (
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/para-dev/para/internal/common/logger"
	"github.com/para-dev/para/internal/egress"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:9991", "address to listen on")
	allowlist := flag.String("allowlist", "", "comma-separated list of allowed domains")
	flag.Parse()

	log := logger.Default()

	var domains []string
	if *allowlist != "" {
		domains = strings.Split(*allowlist, ",")
	}

	proxy := egress.NewProxy(domains, log)
	boundAddr, closeProxy, err := proxy.ListenAndServe(*addr)
	if err != nil {
		log.WithError(err).Fatal("failed to start egress proxy")
	}
	defer func() { _ = closeProxy() }()

	log.Info("egress proxy listening", zap.String("addr", boundAddr.String()))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
}
