package xmodule

/**
模块生命周期管理. 按注册顺序初始化, 逆序销毁
*/

import (
	"time"

	"github.com/pkg/errors"

	"xframe/xlog"
)

type Module interface {
	Init() error
	Destroy()
}

// Func builds a Module from two closures; either may be nil.
type Func struct {
	InitFunc    func() error
	DestroyFunc func()
}

func (f Func) Init() error {
	if f.InitFunc == nil {
		return nil
	}
	return f.InitFunc()
}

func (f Func) Destroy() {
	if f.DestroyFunc != nil {
		f.DestroyFunc()
	}
}

type implModule struct {
	module   Module
	name     string
	inited   bool
	initTime time.Duration
}

type Mgr struct {
	modules []*implModule
}

func NewMgr() *Mgr {
	return &Mgr{}
}

func (mgr *Mgr) Register(name string, m Module) {
	mgr.modules = append(mgr.modules, &implModule{module: m, name: name})
}

// InitAll initializes modules in registration order. On failure the modules
// already initialized are destroyed in reverse order.
func (mgr *Mgr) InitAll() error {
	for i, m := range mgr.modules {
		if m.inited {
			continue
		}
		start := time.Now()
		if err := m.module.Init(); err != nil {
			xlog.Fatalf("module [%d:%s] init failed: %v", i, m.name, err)
			mgr.DestroyAll()
			return errors.Wrapf(err, "module %s", m.name)
		}
		m.inited = true
		m.initTime = time.Since(start)
		xlog.InfoF("module [%d:%s] init ok in %v", i, m.name, m.initTime)
	}
	return nil
}

// DestroyAll destroys initialized modules in reverse order.
func (mgr *Mgr) DestroyAll() {
	for i := len(mgr.modules) - 1; i >= 0; i-- {
		m := mgr.modules[i]
		if !m.inited {
			continue
		}
		xlog.InfoF("module [%d:%s] destroy", i, m.name)
		m.module.Destroy()
		m.inited = false
	}
}

func (mgr *Mgr) ForEachModule(fn func(name string, inited bool, initTime time.Duration)) {
	for _, m := range mgr.modules {
		fn(m.name, m.inited, m.initTime)
	}
}
