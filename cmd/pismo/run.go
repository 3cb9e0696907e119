package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"code.pismoprotocol.io/pismo/accounts"
	"code.pismoprotocol.io/pismo/broker"
	"code.pismoprotocol.io/pismo/collateral"
	"code.pismoprotocol.io/pismo/config"
	"code.pismoprotocol.io/pismo/events"
	"code.pismoprotocol.io/pismo/logging"
	"code.pismoprotocol.io/pismo/positions"
	"code.pismoprotocol.io/pismo/programs"
	"code.pismoprotocol.io/pismo/settlement"
	"code.pismoprotocol.io/pismo/vaults"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type runCmd struct {
	RootPath       string `short:"r" long:"root-path" description:"Path of the root directory in which the configuration is located"`
	MetricsAddress string `long:"metrics-address" default:":8109" description:"Listen address of the prometheus metrics endpoint"`
	SharedDecimals uint8  `long:"shared-decimals" default:"9" description:"Decimal precision shared by all program values"`
}

// eventLogger is the default subscriber, it mirrors the event stream into the
// log until an external indexer transport is attached.
type eventLogger struct {
	log *logging.Logger
}

func (s *eventLogger) Push(evts ...events.Event) {
	for _, e := range evts {
		s.log.Info("event",
			logging.String("type", e.Type().String()),
			logging.String("trace-id", e.TraceID()),
			logging.Time("ts", e.Timestamp()),
		)
	}
}

func (s *eventLogger) Types() []events.Type {
	return []events.Type{events.All}
}

func (cmd *runCmd) Execute(_ []string) error {
	rootPath := cmd.RootPath
	if rootPath == "" {
		rootPath = defaultRootPath()
	}
	cfg, err := config.Read(rootPath)
	if err != nil {
		return err
	}

	log := logging.NewLoggerFromConfig(cfg.Logging)
	defer log.AtExit()

	brk := broker.New(log, cfg.Broker)
	brk.Subscribe(&eventLogger{log: log.Named("events")})

	progEng, adminCap := programs.NewEngine(log, cfg.Programs, brk)
	_ = adminCap // handed to the admin surface once one is attached
	accEng := accounts.NewEngine(log, cfg.Accounts, brk)
	colEng := collateral.NewEngine(log, cfg.Collateral, brk, accEng, progEng)
	vltEng := vaults.NewEngine(log, cfg.Vaults, brk, cmd.SharedDecimals)
	posEng := positions.NewEngine(log, cfg.Positions, brk, accEng, progEng)
	settlement.NewEngine(log, cfg.Settlement, brk, accEng, progEng, colEng, vltEng, posEng)

	http.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(cmd.MetricsAddress, nil); err != nil {
			log.Error("metrics server stopped", logging.Error(err))
		}
	}()

	log.Info("pismo risk engine started",
		logging.String("root-path", rootPath),
		logging.String("metrics-address", cmd.MetricsAddress),
	)

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	sig := <-c
	log.Info("shutting down", logging.String("signal", sig.String()))
	return nil
}
