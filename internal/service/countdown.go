package service

import (
	"sync"
	"time"
)

// TickSource 返回节拍通道及其释放函数，测试中可替换为手动节拍
type TickSource func(interval time.Duration) (<-chan time.Time, func())

func RealTickSource(interval time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(interval)
	return t.C, t.Stop
}

// Countdown 每个会话一个的倒计时任务。
// onTick 在每个节拍调用，返回剩余秒数和是否继续计时；done 为本轮计时的停止信号，
// 回调在自己的锁内再次检查它即可丢弃停止前已到达的节拍。
// 剩余时间归零时停止并只触发一次 onExpire。
type Countdown struct {
	interval time.Duration
	source   TickSource
	onTick   func(done <-chan struct{}) (remaining int, ok bool)
	onExpire func()

	mu      sync.Mutex
	done    chan struct{}
	running bool

	expireOnce sync.Once
	expired    chan struct{}
}

func NewCountdown(interval time.Duration, source TickSource, onTick func(done <-chan struct{}) (int, bool), onExpire func()) *Countdown {
	if source == nil {
		source = RealTickSource
	}
	return &Countdown{
		interval: interval,
		source:   source,
		onTick:   onTick,
		onExpire: onExpire,
		expired:  make(chan struct{}),
	}
}

func (c *Countdown) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return
	}
	c.running = true
	done := make(chan struct{})
	c.done = done
	ticks, release := c.source(c.interval)
	go c.run(ticks, release, done)
}

func (c *Countdown) run(ticks <-chan time.Time, release func(), done chan struct{}) {
	defer release()
	for {
		select {
		case <-done:
			return
		case <-ticks:
			select {
			case <-done:
				return
			default:
			}
			remaining, ok := c.onTick(done)
			if !ok {
				c.stop(done)
				return
			}
			if remaining <= 0 {
				c.stop(done)
				c.fireExpired()
				return
			}
		}
	}
}

// Stop 不阻塞，可在 onTick/onExpire 内部调用
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		close(c.done)
		c.running = false
	}
}

func (c *Countdown) stop(done chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running && c.done == done {
		close(c.done)
		c.running = false
	}
}

func (c *Countdown) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *Countdown) fireExpired() {
	c.expireOnce.Do(func() {
		close(c.expired)
		if c.onExpire != nil {
			go c.onExpire()
		}
	})
}

// Expired 倒计时结束后关闭
func (c *Countdown) Expired() <-chan struct{} {
	return c.expired
}
