package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/junbin-yang/microcoap-go/pkg/metrics"
	"github.com/junbin-yang/microcoap-go/pkg/netstack"
	"github.com/junbin-yang/microcoap-go/pkg/responder"
	"github.com/junbin-yang/microcoap-go/pkg/utils/config"
	log "github.com/junbin-yang/microcoap-go/pkg/utils/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type serveFlags struct {
	config  string
	port    uint16
	payload string
	metrics string
}

var serveOpts serveFlags

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动应答服务",
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := loadServeConfig(cmd, serveOpts)
		if err != nil {
			return err
		}
		return runServe(cmd.Context(), conf)
	},
}

func init() {
	f := serveCmd.Flags()
	f.StringVarP(&serveOpts.config, "config", "c", "", "配置文件路径 (默认查找 coapd.yml / coapd.toml)")
	f.Uint16VarP(&serveOpts.port, "port", "p", 5683, "UDP端口")
	f.StringVar(&serveOpts.payload, "payload", "Hello", "应答负载")
	f.StringVar(&serveOpts.metrics, "metrics", "", "Prometheus指标监听地址, 如 :9100")
}

// loadServeConfig 加载配置，命令行显式指定的参数优先
func loadServeConfig(cmd *cobra.Command, opts serveFlags) (*config.Config, error) {
	path := opts.config
	if path == "" {
		path = config.DefaultPath()
	}
	conf, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("port") {
		conf.Port = opts.port
	}
	if cmd.Flags().Changed("payload") {
		conf.Payload = opts.payload
	}
	if cmd.Flags().Changed("metrics") {
		conf.Metrics.Addr = opts.metrics
	}
	return conf, conf.Validate()
}

func runServe(ctx context.Context, conf *config.Config) error {
	if err := conf.SetupLogger(); err != nil {
		return err
	}
	defer log.Sync()

	dev, err := conf.DeviceAddr()
	if err != nil {
		return err
	}
	tr, err := netstack.ListenUDP(conf.ListenAddr(), dev, conf.PollInterval)
	if err != nil {
		return err
	}
	defer tr.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	srv := responder.New(tr, dev, uint16(tr.LocalAddr().Port), conf.BufferSize, metrics.New(reg))
	srv.Payload = []byte(conf.Payload)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := srv.Serve(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	if conf.Metrics.Addr != "" {
		startMetricsServer(ctx, g, conf.Metrics.Addr, reg)
	}
	g.Go(func() error {
		return stopSignalHandler(ctx, cancel)
	})

	log.Infof("[COAPD] %s 监听 %s", versionString(), tr.LocalAddr())
	return g.Wait()
}

func startMetricsServer(ctx context.Context, g *errgroup.Group, addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	hs := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	g.Go(func() error {
		log.Infof("[COAPD] 指标服务监听 %s", addr)
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return hs.Shutdown(sctx)
	})
}

func stopSignalHandler(ctx context.Context, cancel context.CancelFunc) error {
	c := make(chan os.Signal, 2)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(c)
	select {
	case sig := <-c:
		log.Infof("[COAPD] 收到信号 %s, 退出", sig)
		cancel()
		return nil
	case <-ctx.Done():
		return nil
	}
}
