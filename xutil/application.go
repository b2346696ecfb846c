package xutil

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"github.com/bmizerany/pat"
	"github.com/pkg/errors"

	"xframe/xlog"
)

const (
	maxPortRange = 64 // 最大端口偏移值. 比如配置监听13000, 先检测13000是否有被使用, 如果被使用就监听13001, 直到试n次累加
)

// http函数定义
type HttpCmdFunc func(args []string) string

// Application owns the debug http server and the process signal handling.
type Application struct {
	httpAddr string               // 监听的http地址
	httpPort int                  // 监听的http端口
	serveMux *http.ServeMux       // 用于http监听
	pattern  *pat.PatternServeMux // 三方库, 优化路由
	server   *http.Server
	httpCmds []string // 定义的所有http命令, 用于/help返回给调用端本进程支持哪些命令
}

func NewApplication() *Application {
	a := &Application{
		serveMux: http.NewServeMux(),
		pattern:  pat.New(),
	}
	// [/health] 路由主要用来应付consul的心跳检测.
	a.pattern.Get("/health", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprintln(w, "ok")
	}))
	defaultCmd(a)
	a.serveMux.Handle("/", a.pattern)
	return a
}

// 把ip地址拆分成ip+port
func splitAddr(addr string) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0
	}
	return host, port
}

// ServeHTTP listens on listen, trying up to maxPortRange ports upward when
// the configured one is taken, and serves in the background.
func (a *Application) ServeHTTP(listen string) error {
	host, port := splitAddr(listen)
	if host == "" && port == 0 {
		return errors.Errorf("http listen address wrong %s", listen)
	}
	// 找一个可用端口
	var l net.Listener
	var err error
	for i := port; i < port+maxPortRange; i++ {
		l, err = net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(i)))
		if err == nil {
			break
		}
		if port == 0 {
			break
		}
	}
	if err != nil {
		return errors.Wrapf(err, "http listen %s", listen)
	}
	a.httpAddr, a.httpPort = splitAddr(l.Addr().String())
	if host == "0.0.0.0" || host == "" {
		a.httpAddr = GetLocalAddr()
	}
	xlog.InfoF("http listen address: http://%s", l.Addr().String())

	a.server = &http.Server{Handler: a.serveMux}
	go func() {
		if err := a.server.Serve(l); err != nil && err != http.ErrServerClosed {
			xlog.Errorf("serveHTTP, http.Serve err=%v", err)
		}
	}()
	return nil
}

// Addr returns the address the http server advertises.
func (a *Application) Addr() (string, int) {
	return a.httpAddr, a.httpPort
}

func (a *Application) Handler() http.Handler {
	return a.serveMux
}

// Handle mounts h on the raw mux, outside the pat router.
func (a *Application) Handle(pattern string, h http.Handler) {
	a.serveMux.Handle(pattern, h)
}

// 自定义注册一些http命令
func (a *Application) HandleHttpCmd(pattern string, cmdfunc HttpCmdFunc) {
	a.httpCmds = append(a.httpCmds, pattern)
	a.pattern.Get(pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		xlog.Debugf("httpcmd:%s", r.RequestURI)
		args := strings.FieldsFunc(r.URL.Path, func(r rune) bool {
			return r == '/'
		})
		_, _ = fmt.Fprintln(w, cmdfunc(args))
	}))
}

func (a *Application) Commands() []string {
	cmds := append([]string(nil), a.httpCmds...)
	sort.Strings(cmds)
	return cmds
}

func (a *Application) Shutdown(ctx context.Context) error {
	if a.server == nil {
		return nil
	}
	return a.server.Shutdown(ctx)
}

// WaitSignal blocks until SIGINT/SIGTERM arrives or ctx ends.
func WaitSignal(ctx context.Context) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(c)
	select {
	case sig := <-c:
		xlog.InfoF("caught signal: %v", sig)
	case <-ctx.Done():
	}
}

// 获取本地ip地址
func GetLocalAddr() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "127.0.0.1"
	}
	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() && ipnet.IP.To4() != nil {
			return ipnet.IP.String()
		}
	}
	return "127.0.0.1"
}
