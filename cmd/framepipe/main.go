// Command framepipe circulates a fixed pool of frame buffers between
// producer and consumer goroutines and exposes the pool over http.
//
//	framepipe -config pipe.toml -frames 10000
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"xframe/xbuffer"
	"xframe/xconfig"
	"xframe/xconsul"
	"xframe/xlog"
	"xframe/xmetric"
	"xframe/xmodule"
	"xframe/xpipe"
	"xframe/xutil"
)

var (
	configPath = flag.String("config", "", "config file (.toml, .yaml, .json)")
	frames     = flag.Int64("frames", -1, "frames to run, 0 runs until signalled (overrides config)")
	listen     = flag.String("http.listen", "", "http listen addr (overrides config)")
	logLevel   = flag.String("log.level", "", "log level (overrides config)")
)

func loadConfig() (*xconfig.Config, error) {
	cfg := xconfig.Default()
	if *configPath != "" {
		var err error
		if cfg, err = xconfig.Load(*configPath); err != nil {
			return nil, err
		}
	}
	if *frames >= 0 {
		cfg.Pipeline.Frames = *frames
	}
	if *listen != "" {
		cfg.HTTP.Listen = *listen
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	return cfg, cfg.Validate()
}

func main() {
	flag.Parse()
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "framepipe: %v\n", err)
		os.Exit(2)
	}
	if err := run(cfg); err != nil {
		xlog.Errorf("framepipe: %v", err)
		xlog.Close()
		os.Exit(1)
	}
}

func run(cfg *xconfig.Config) error {
	pool := xbuffer.NewPacketScaleQueue()
	gather := xmetric.NewGather().Program("framepipe")
	app := xutil.NewApplication()
	var pipe *xpipe.Pipeline

	mgr := xmodule.NewMgr()
	mgr.Register("log", xmodule.Func{
		InitFunc: func() error {
			if err := xlog.Setup(cfg.Log); err != nil {
				return err
			}
			zapFile := ""
			if cfg.Log.Dir != "" {
				zapFile = cfg.Log.Dir + "/framepipe.json.log"
			}
			xlog.NewZapLogger(zapFile)
			return nil
		},
		DestroyFunc: func() {
			_ = xlog.ZapSync()
			_ = xlog.Sync()
		},
	})
	mgr.Register("pool", xmodule.Func{
		InitFunc: func() error {
			return pool.Init(cfg.Pool.BufferCount, cfg.Pool.BufferSize)
		},
		DestroyFunc: func() {
			st := pool.Stats()
			n := pool.Destroy()
			xlog.InfoF("pool released %d buffers (%d allocated, %s each)",
				n, st.Allocated, xutil.FormatBytes(uint64(st.BufferSize)))
		},
	})
	mgr.Register("pipeline", xmodule.Func{
		InitFunc: func() error {
			var err error
			pipe, err = xpipe.New(pool, xpipe.Config{
				Frames:     cfg.Pipeline.Frames,
				Producers:  cfg.Pipeline.Producers,
				Consumers:  cfg.Pipeline.Consumers,
				FrameSize:  cfg.Pipeline.FrameSize,
				PopTimeout: time.Duration(cfg.Pipeline.PopTimeoutMs) * time.Millisecond,
			})
			return err
		},
	})
	mgr.Register("metric", xmodule.Func{
		InitFunc: func() error {
			if err := gather.Init(); err != nil {
				return err
			}
			gather.AddJob(xpipe.NewMetric(pipe))
			return nil
		},
		DestroyFunc: gather.Destroy,
	})
	if cfg.HTTP.Enabled {
		mgr.Register("http", xmodule.Func{
			InitFunc: func() error {
				app.Handle("/metrics", gather.Handler())
				app.HandleHttpCmd("/stats", func(args []string) string {
					return statsText(pool.Stats(), pipe.Stats())
				})
				return app.ServeHTTP(cfg.HTTP.Listen)
			},
			DestroyFunc: func() {
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = app.Shutdown(ctx)
			},
		})
		if cfg.Consul.Addr != "" {
			var consul *xconsul.ConsulClient
			mgr.Register("consul", xmodule.Func{
				InitFunc: func() error {
					addr, port := app.Addr()
					consul = xconsul.NewServiceClient(&xconsul.HTTPConfig{HttpAddr: cfg.Consul.Addr},
						cfg.Consul.ServiceName, addr, port, "/health")
					return consul.Register()
				},
				DestroyFunc: func() {
					if err := consul.DeRegister(); err != nil {
						xlog.Warnf("consul deregister: %v", err)
					}
				},
			})
		}
	}

	if err := mgr.InitAll(); err != nil {
		return err
	}
	defer func() {
		mgr.DestroyAll()
		xlog.Close()
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		xutil.WaitSignal(ctx)
		cancel()
	}()

	if err := pipe.Run(ctx); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

func statsText(ps xbuffer.PoolStats, st xpipe.Stats) string {
	avg := int64(0)
	if st.Consumed > 0 {
		avg = st.LatencyTotalMs / int64(st.Consumed)
	}
	return fmt.Sprintf("buffers: %d x %s in %d chunks\n"+
		"packet: size=%d push=%d pop=%d\n"+
		"scale: size=%d push=%d pop=%d\n"+
		"released: %d\n"+
		"frames: produced=%d consumed=%d failed=%d stalls=%d\n"+
		"latency: avg=%dms max=%dms",
		ps.Allocated, xutil.FormatBytes(uint64(ps.BufferSize)), ps.Chunks,
		ps.PacketSize, ps.PacketPushes, ps.PacketPops,
		ps.ScaleSize, ps.ScalePushes, ps.ScalePops,
		ps.Released,
		st.Produced, st.Consumed, st.Failed, st.Stalls,
		avg, st.LatencyMaxMs)
}
