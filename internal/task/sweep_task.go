package task

import (
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"thailao_logistics/pkg/logger"
)

// DefaultSweepSpec 每分钟第 0 秒
const DefaultSweepSpec = "0 * * * * *"

// Sweeper 可被定时清理的内存状态
type Sweeper interface {
	// Sweep 返回清理掉的条目数
	Sweep() int
}

// SweeperFunc 函数适配
type SweeperFunc func() int

func (f SweeperFunc) Sweep() int { return f() }

// SweepTask 定时清理限流窗口与 Token 缓存
type SweepTask struct {
	cron     *cron.Cron
	spec     string
	sweepers map[string]Sweeper

	mu      sync.Mutex
	started bool
}

// NewSweepTask 创建清理任务，spec 为空时使用默认值
func NewSweepTask(spec string) *SweepTask {
	if spec == "" {
		spec = DefaultSweepSpec
	}
	return &SweepTask{
		cron:     cron.New(cron.WithSeconds()),
		spec:     spec,
		sweepers: make(map[string]Sweeper),
	}
}

// Register 注册清理对象，需在 Start 之前调用
func (t *SweepTask) Register(name string, s Sweeper) *SweepTask {
	if s != nil {
		t.sweepers[name] = s
	}
	return t
}

// Start 启动定时任务
func (t *SweepTask) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started {
		return nil
	}

	if _, err := t.cron.AddFunc(t.spec, func() { t.RunOnce() }); err != nil {
		return fmt.Errorf("清理任务表达式无效 %q: %w", t.spec, err)
	}
	t.cron.Start()
	t.started = true

	logger.L().Info("[Task] 清理任务已启动",
		zap.String("spec", t.spec),
		zap.Int("sweepers", len(t.sweepers)))
	return nil
}

// Stop 停止调度并等待正在执行的任务结束
func (t *SweepTask) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.started {
		return
	}
	<-t.cron.Stop().Done()
	t.started = false
	logger.L().Info("[Task] 清理任务已停止")
}

// RunOnce 立即执行一次，返回各清理对象的清理数量
func (t *SweepTask) RunOnce() map[string]int {
	result := make(map[string]int, len(t.sweepers))
	for name, s := range t.sweepers {
		n := t.sweepSafe(name, s)
		result[name] = n
		if n > 0 {
			logger.L().Debug("[Task] 清理过期条目", zap.String("target", name), zap.Int("removed", n))
		}
	}
	return result
}

func (t *SweepTask) sweepSafe(name string, s Sweeper) (n int) {
	defer func() {
		if r := recover(); r != nil {
			logger.L().Error("[Task] 清理任务异常", zap.String("target", name), zap.Any("panic", r))
			n = 0
		}
	}()
	return s.Sweep()
}
