// Command cybercached is the server entrypoint: load config, start
// logging, open the binlog, bring up the session store, and serve
// connections until a termination signal arrives. Grounded on
// server/net/mysql_server.go's Start/initServer/initSignal shape, with
// MySQL's listener/session setup replaced by internal/wirenet's
// CyberCache command framing.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cyberhull/cybercache-cluster-sub001/internal/auth"
	"github.com/cyberhull/cybercache-cluster-sub001/internal/binlog"
	"github.com/cyberhull/cybercache-cluster-sub001/internal/config"
	"github.com/cyberhull/cybercache-cluster-sub001/internal/dispatch"
	"github.com/cyberhull/cybercache-cluster-sub001/internal/log"
	"github.com/cyberhull/cybercache-cluster-sub001/internal/replication"
	"github.com/cyberhull/cybercache-cluster-sub001/internal/wirenet"
	"github.com/cyberhull/cybercache-cluster-sub001/internal/workers"
)

var configPath = flag.String("config", "", "path to cybercache.ini")

func main() {
	flag.Parse()

	cfg, err := config.Load(&config.Args{ConfigPath: *configPath})
	if err != nil {
		fmt.Fprintf(os.Stderr, "cybercached: loading config: %v\n", err)
		os.Exit(1)
	}

	if err := log.Init(log.Config{Level: "info"}); err != nil {
		fmt.Fprintf(os.Stderr, "cybercached: initializing logging: %v\n", err)
		os.Exit(1)
	}

	srv, err := newServer(cfg)
	if err != nil {
		log.Fatalf("cybercached: %v", err)
	}
	srv.start()
	srv.waitForSignal()
}

type server struct {
	cfg     *config.Cfg
	binlog  *binlog.Writer
	store   *dispatch.Store
	pool    *workers.Pool
	fanout  *replication.Fanout
	wire    *wirenet.Server
}

func newServer(cfg *config.Cfg) (*server, error) {
	var bl *binlog.Writer
	if cfg.BinlogPath != "" {
		w, err := binlog.Open(cfg.BinlogPath)
		if err != nil {
			return nil, fmt.Errorf("opening binlog: %w", err)
		}
		bl = w
	}

	authSvc := auth.NewService(cfg.UserPassword, cfg.AdminPassword, cfg.BulkPassword)
	store := dispatch.NewStore(authSvc, bl)
	pool := workers.NewPool(0)

	var fanout *replication.Fanout
	if cfg.ReplicationConfigPath != "" {
		top, err := config.LoadTopology(cfg.ReplicationConfigPath)
		if err != nil {
			return nil, fmt.Errorf("loading replication topology: %w", err)
		}
		fanout = replication.NewFanout(5 * time.Second)
		if err := fanout.Connect(top); err != nil {
			log.Warnf("cybercached: replication connect failed, continuing without replicas: %v", err)
			fanout = nil
		}
	}

	return &server{cfg: cfg, binlog: bl, store: store, pool: pool, fanout: fanout}, nil
}

func (s *server) start() {
	addr := fmt.Sprintf("%s:%d", s.cfg.BindAddress, s.cfg.Port)
	handler := wirenet.NewHandler(s.store, s.pool)
	s.wire = wirenet.Listen(addr, handler)
	log.Infof("cybercached: listening on %s", addr)
}

func (s *server) waitForSignal() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	for sig := range sigs {
		if sig == syscall.SIGHUP {
			log.Infof("cybercached: SIGHUP received, reload not yet implemented")
			continue
		}
		log.Infof("cybercached: received %s, shutting down", sig)
		s.shutdown()
		return
	}
}

func (s *server) shutdown() {
	if s.wire != nil {
		s.wire.Close()
	}
	if s.fanout != nil {
		s.fanout.Close()
	}
	if s.binlog != nil {
		s.binlog.Close()
	}
}
