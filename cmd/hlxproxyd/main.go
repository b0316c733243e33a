package main

import (
	"context"
	"fmt"
	"log/syslog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gerickson-labs/hlxgo/hlxconn"
	"github.com/gerickson-labs/hlxgo/hlxstats"
	"github.com/gerickson-labs/hlxgo/proxy"
	"github.com/gerickson-labs/hlxgo/topctrl"
	log "github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"
	"gopkg.in/yaml.v2"
)

// daemonVersion is reported by --version, the way --version flags
// elsewhere in the pack report a build identifier.
const daemonVersion = "1.0.0"

// Config is hlxproxyd's yaml-loadable configuration, overridable by CLI
// flags the way cmd/sptp/main.go's prepareConfig layers flags over a
// config file: --listen wins when given and --monitoringport when it
// differs from its default of 8900; otherwise the config file's value,
// else the built-in default.
type Config struct {
	Downstream     []string      `yaml:"downstream"`
	MonitoringPort int           `yaml:"monitoringport"`
	ConnectTimeout time.Duration `yaml:"connecttimeout"`
	RefreshTimeout time.Duration `yaml:"refreshtimeout"`
}

// ReadConfig reads and parses a yaml config file.
func ReadConfig(path string) (*Config, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config from %q: %w", path, err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(buf, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %q: %w", path, err)
	}
	return cfg, nil
}

const defaultMonitoringPort = 8900
const defaultDownstreamAddr = ":8899"

func prepareConfig(cfgPath string, listen []string, monitoringPort int) (*Config, error) {
	cfg := &Config{
		MonitoringPort: defaultMonitoringPort,
		ConnectTimeout: 5 * time.Second,
		RefreshTimeout: 2 * time.Second,
	}
	if cfgPath != "" {
		fileCfg, err := ReadConfig(cfgPath)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
		if cfg.MonitoringPort == 0 {
			cfg.MonitoringPort = defaultMonitoringPort
		}
		if cfg.ConnectTimeout == 0 {
			cfg.ConnectTimeout = 5 * time.Second
		}
		if cfg.RefreshTimeout == 0 {
			cfg.RefreshTimeout = 2 * time.Second
		}
	}
	if len(listen) > 0 {
		cfg.Downstream = listen
	}
	if monitoringPort != defaultMonitoringPort {
		cfg.MonitoringPort = monitoringPort
	}
	if len(cfg.Downstream) == 0 {
		cfg.Downstream = []string{defaultDownstreamAddr}
	}
	return cfg, nil
}

func configureLogging(quiet, syslogEnabled bool, debugLevel, verboseLevel string) {
	log.SetLevel(log.WarnLevel)
	if verboseLevel != "" {
		log.SetLevel(log.InfoLevel)
	}
	if debugLevel != "" {
		log.SetLevel(log.DebugLevel)
	}
	if quiet {
		log.SetLevel(log.ErrorLevel)
	}
	if syslogEnabled {
		w, err := syslog.New(syslog.LOG_DAEMON|syslog.LOG_INFO, "hlxproxyd")
		if err != nil {
			log.Warnf("hlxproxyd: failed to connect to syslog, logging to stderr: %v", err)
			return
		}
		log.SetOutput(w)
	}
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("hlxproxyd", flag.ContinueOnError)

	var (
		debugFlag          string
		helpFlag           bool
		ipv4OnlyFlag       bool
		ipv6OnlyFlag       bool
		quietFlag          bool
		syslogFlag         bool
		verboseFlag        string
		versionFlag        bool
		configFlag         string
		listenFlag         []string
		monitoringPortFlag int
	)

	fs.StringVarP(&debugFlag, "debug", "d", "", "enable debug logging, with an optional numeric level")
	fs.Lookup("debug").NoOptDefVal = "1"
	fs.BoolVarP(&helpFlag, "help", "h", false, "show usage")
	fs.BoolVarP(&ipv4OnlyFlag, "ipv4-only", "4", false, "listen on IPv4 only")
	fs.BoolVarP(&ipv6OnlyFlag, "ipv6-only", "6", false, "listen on IPv6 only")
	fs.BoolVarP(&quietFlag, "quiet", "q", false, "suppress all but error logging")
	fs.BoolVarP(&syslogFlag, "syslog", "s", false, "send logs to syslog instead of stderr")
	fs.StringVarP(&verboseFlag, "verbose", "v", "", "verbose output, with an optional numeric level")
	fs.Lookup("verbose").NoOptDefVal = "1"
	fs.BoolVarP(&versionFlag, "version", "V", false, "print the version and exit")
	fs.StringVar(&configFlag, "config", "", "path to a yaml config file")
	fs.StringSliceVar(&listenFlag, "listen", nil, "downstream listen address (repeatable)")
	fs.IntVar(&monitoringPortFlag, "monitoringport", defaultMonitoringPort, "port to run the hlxstats JSON monitoring server on")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if helpFlag {
		fmt.Fprintln(os.Stdout, "usage: hlxproxyd [flags] <upstream-host[:port]>")
		fmt.Fprintln(os.Stdout, fs.FlagUsages())
		return 0
	}
	if versionFlag {
		fmt.Fprintf(os.Stdout, "hlxproxyd %s\n", daemonVersion)
		return 0
	}
	if ipv4OnlyFlag && ipv6OnlyFlag {
		fmt.Fprintln(os.Stderr, "hlxproxyd: -4/--ipv4-only and -6/--ipv6-only are mutually exclusive")
		return 1
	}

	configureLogging(quietFlag, syslogFlag, debugFlag, verboseFlag)

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: hlxproxyd [flags] <upstream-host[:port]>")
		return 1
	}
	upstreamAddr := fs.Arg(0)

	cfg, err := prepareConfig(configFlag, listenFlag, monitoringPortFlag)
	if err != nil {
		log.Error(err)
		return 1
	}

	p := proxy.New(cfg.RefreshTimeout)
	switch {
	case ipv4OnlyFlag:
		p.SetIPVersions(hlxconn.IPv4)
	case ipv6OnlyFlag:
		p.SetIPVersions(hlxconn.IPv6)
	}

	st := hlxstats.New(p)
	p.SetDelegate(proxy.Delegate{
		Delegate: topctrl.Delegate{
			IsRefreshing:    st.IsRefreshing,
			DidRefresh:      st.DidRefresh,
			ControllerError: st.ControllerError,
		},
	})
	go st.Start(cfg.MonitoringPort)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGHUP, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)
	defer stop()

	if err := p.Start(ctx, upstreamAddr, cfg.ConnectTimeout, cfg.Downstream...); err != nil {
		log.Errorf("hlxproxyd: failed to start: %v", err)
		return 1
	}
	log.Infof("hlxproxyd: relaying %s to %v", upstreamAddr, cfg.Downstream)

	<-ctx.Done()
	log.Info("hlxproxyd: shutting down")
	p.Close()
	return 0
}
