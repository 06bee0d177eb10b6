// Command kasparited wires the consensus core, connection manager, and
// their storage/transport dependencies into a single running process,
// scoped to a trimmed, header-pipeline-centric core (body processing,
// RPC, mempool, and wallet are external collaborators here).
package main

import (
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap/zapcore"

	"github.com/kasparite/node/addressmanager"
	"github.com/kasparite/node/connmanager"
	"github.com/kasparite/node/domain/consensus"
	"github.com/kasparite/node/domain/dagconfig"
	"github.com/kasparite/node/infrastructure/config"
	"github.com/kasparite/node/infrastructure/db/database/bboltadapter"
	"github.com/kasparite/node/infrastructure/logger"
	"github.com/kasparite/node/netadapter"
)

func main() {
	cfg := config.Defaults()
	dataDir := pflag.String("data-dir", "kasparited-data", "database directory")
	listenAddr := pflag.String("listen", ":16111", "p2p listen address")
	cfg.RegisterFlags(pflag.CommandLine)
	pflag.Parse()

	backend := logger.NewBackend(zapcore.InfoLevel)
	log := backend.Subsystem("MAIN")

	db, err := bboltadapter.Open(*dataDir)
	if err != nil {
		log.Errorf("opening database: %+v", err)
		os.Exit(1)
	}

	params := dagconfig.Mainnet()
	dag := consensus.New(db, params, cfg, backend)
	if err := dag.Init(nil); err != nil {
		log.Errorf("initializing consensus: %+v", err)
		os.Exit(1)
	}

	netAdapter, err := netadapter.New(*listenAddr)
	if err != nil {
		log.Errorf("starting net adapter: %+v", err)
		os.Exit(1)
	}

	addrMgr := addressmanager.New()
	connMgr := connmanager.New(netAdapter, addrMgr, cfg, backend)
	connMgr.Start()
	defer connMgr.Stop()

	log.Infof("kasparited listening on %s", *listenAddr)
	select {}
}
