package xconsul

import (
	"fmt"
	"time"

	"github.com/hashicorp/consul/api"
	"github.com/pkg/errors"

	"xframe/xlog"
)

var ErrNoAddr = errors.New("xconsul: consul http address is empty")

type HTTPConfig struct {
	HttpAddr string // http地址: http://ip:port
}

// ConsulClient registers one service with a consul agent.
type ConsulClient struct {
	*HTTPConfig
	Addr        string // 服务地址
	Port        int
	ServiceID   string
	ServiceName string
	Tags        []string
	Checks      api.AgentServiceChecks
	Client      *api.Client
	Cfg         *api.Config
	registered  bool
}

// NewServiceClient describes a service served at addr:port whose health is
// polled over http at healthPath.
func NewServiceClient(cfg *HTTPConfig, name, addr string, port int, healthPath string) *ConsulClient {
	return &ConsulClient{
		HTTPConfig:  cfg,
		Addr:        addr,
		Port:        port,
		ServiceID:   fmt.Sprintf("%s_%s_%d", name, addr, port),
		ServiceName: name,
		Tags:        []string{"v1"},
		Checks: api.AgentServiceChecks{
			HTTPCheck(fmt.Sprintf("http://%s:%d%s", addr, port, healthPath), 10*time.Second, 30*time.Second),
		},
	}
}

// HTTPCheck polls url every interval; the service is removed after it has
// been critical for deregisterAfter.
func HTTPCheck(url string, interval, deregisterAfter time.Duration) *api.AgentServiceCheck {
	return &api.AgentServiceCheck{
		HTTP:                           url,
		Interval:                       interval.String(),
		Timeout:                        (interval / 2).String(),
		DeregisterCriticalServiceAfter: deregisterAfter.String(),
	}
}

func (p *ConsulClient) newConfig() *api.Config {
	res := api.DefaultConfig()
	res.WaitTime = time.Second
	res.Address = p.HttpAddr
	p.Cfg = res
	return res
}

func (p *ConsulClient) getConfig() *api.Config {
	if p.Cfg != nil {
		return p.Cfg
	}
	return p.newConfig()
}

func (p *ConsulClient) getClient() (*api.Client, error) {
	if p.Client != nil {
		return p.Client, nil
	}
	if p.HTTPConfig == nil || p.HttpAddr == "" {
		return nil, ErrNoAddr
	}
	client, err := api.NewClient(p.getConfig())
	if err != nil {
		return nil, errors.Wrap(err, "consul new client")
	}
	p.Client = client
	return p.Client, nil
}

func (p *ConsulClient) Register() error {
	client, err := p.getClient()
	if err != nil {
		return err
	}
	reg := &api.AgentServiceRegistration{
		ID:      p.ServiceID,
		Name:    p.ServiceName,
		Tags:    p.Tags,
		Address: p.Addr,
		Port:    p.Port,
		Checks:  p.Checks,
	}
	if err = client.Agent().ServiceRegister(reg); err != nil {
		return errors.Wrapf(err, "register service %s", p.ServiceID)
	}
	p.registered = true
	xlog.InfoF("register service %s to %s ok", p.ServiceName, p.getConfig().Address)
	return nil
}

// 取消注册
func (p *ConsulClient) DeRegister() error {
	if !p.registered {
		return nil
	}
	client, err := p.getClient()
	if err != nil {
		return err
	}
	if err = client.Agent().ServiceDeregister(p.ServiceID); err != nil {
		return errors.Wrapf(err, "deregister service %s", p.ServiceID)
	}
	p.registered = false
	xlog.InfoF("deregister service %s ok", p.ServiceID)
	return nil
}
