package controller

import (
	"errors"
	"fmt"
	"sync"

	"git.fiblab.net/general/common/v2/mathutil"
	"github.com/tsinghua-fib-lab/intersection-ctl-oss/entity"
	"github.com/tsinghua-fib-lab/intersection-ctl-oss/utils/config"
)

var (
	// ErrInvalidInput 超出定义域的输入，同步拒绝且不改变状态
	ErrInvalidInput = errors.New("invalid input")
)

// pedOverlay 行人通行覆盖窗口
// 功能：叠加在放行状态之上的限时WALK/STOP窗口（通行段+清空段）
// 说明：同一时刻至多一个覆盖窗口；窗口结束后该街道行人信号回到STOP
type pedOverlay struct {
	street         entity.Street // 被放行的街道
	walkRemaining  float64       // 通行段剩余时间
	clearRemaining float64       // 清空段剩余时间
}

// walking 判断覆盖窗口是否处于通行段
func (o *pedOverlay) walking() bool {
	return o.walkRemaining > 0
}

// ctlRuntime 信控运行时数据结构
// 功能：存储控制器的完整可变状态，便于snapshot整体拷贝
type ctlRuntime struct {
	mode           entity.Mode              // 当前运行模式
	state          entity.State             // 当前状态（仅NORMAL模式有意义）
	remainingT     float64                  // 当前状态剩余时间
	overlay        *pedOverlay              // 行人覆盖窗口（可空）
	pending        [entity.NumStreets]bool  // 行人请求挂起标志
	blinkOn        bool                     // 闪烁模式当前亮灭
	blinkRemaining float64                  // 距下一次闪烁翻转的剩余时间
	ok             bool                     // 输出链路健康状态，false时锁定安全全红
}

// SignalController 路口信控状态机
// 功能：驱动固定循环的车流相位切换，叠加行人覆盖窗口，处理模式切换与安全锁定
// 说明：所有可变状态由单一互斥锁保护，Update在循环线程调用，
// RequestPedestrian/SetMode可从输入协程并发调用
type SignalController struct {
	ctx           entity.ITaskContext
	table         *PhaseTable   // 相位表
	timing        config.Timing // 行人窗口等时长配置
	blinkInterval float64       // 闪烁间隔

	mtx      sync.Mutex
	runtime  ctlRuntime              // 运行时数据
	snapshot ctlRuntime              // snapshot，Prepare时写入，供读取接口使用
	signals  entity.SignalAssignment // snapshot对应的信号分配
}

// New 创建信控状态机
// 功能：初始化控制器，进入NORMAL模式循环起始状态
// 参数：ctx-任务上下文，table-相位表
// 返回：初始化完成的控制器实例
func New(ctx entity.ITaskContext, table *PhaseTable) *SignalController {
	c := &SignalController{
		ctx:           ctx,
		table:         table,
		timing:        ctx.RuntimeConfig().C.Timing,
		blinkInterval: ctx.RuntimeConfig().C.BlinkInterval,
	}
	c.runtime = ctlRuntime{mode: entity.ModeNormal, ok: true}
	c.resetCycleLocked()
	c.snapshot = c.runtime
	c.signals = c.computeLocked(c.snapshot)
	return c
}

// resetCycleLocked 重置状态机到循环起始状态
// 说明：从其他模式回到NORMAL时调用，不保留任何进度；挂起的行人请求
// 在进入起始状态时按正常规则判定是否放行
func (c *SignalController) resetCycleLocked() {
	first := c.table.First()
	c.runtime.state = first
	c.runtime.remainingT = c.table.Duration(first)
	c.runtime.overlay = nil
	c.enterStateLocked()
}

// enterStateLocked 进入状态时的处理
// 功能：若当前状态可放行某街道行人且该街道请求挂起，则清除标志并开启覆盖窗口
// 说明：每个状态至多一条街道可放行，另一条街道的请求保持挂起等待其自身的放行状态
func (c *SignalController) enterStateLocked() {
	for street := entity.Street(0); street < entity.NumStreets; street++ {
		if c.runtime.pending[street] && c.table.PedestrianEligible(c.runtime.state, street) {
			c.runtime.pending[street] = false
			c.runtime.overlay = &pedOverlay{
				street:         street,
				walkRemaining:  c.timing.PedestrianWalk,
				clearRemaining: c.timing.PedestrianClearance,
			}
			log.Infof("pedestrian service for street %v starts in state %v (walk %.1fs + clearance %.1fs)",
				street, c.runtime.state, c.timing.PedestrianWalk, c.timing.PedestrianClearance)
			return
		}
	}
}

// Prepare 准备阶段
// 功能：将运行时数据写入snapshot并重算信号分配
// 说明：读取接口只访问snapshot，保证一个轮询周期内读数一致
func (c *SignalController) Prepare() {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.snapshot = c.runtime
	if c.runtime.overlay != nil {
		// 深拷贝，避免snapshot读数随运行时数据变化
		o := *c.runtime.overlay
		c.snapshot.overlay = &o
	}
	c.signals = c.computeLocked(c.snapshot)
}

// Update 更新阶段，推进控制器定时器
// 功能：按真实耗时推进状态机；dt跨越多个短状态时在循环内逐一切换，不跳过
// 参数：dt-距上一轮询的耗时（秒）
// 返回：dt为负时返回ErrInvalidInput且不改变状态
func (c *SignalController) Update(dt float64) error {
	if dt < 0 {
		return fmt.Errorf("%w: negative elapsed time %v", ErrInvalidInput, dt)
	}
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if !c.runtime.ok {
		// 安全锁定中，冻结一切推进
		return nil
	}
	switch c.runtime.mode {
	case entity.ModeMaintenance:
		// 全灭，无需推进
	case entity.ModeNight, entity.ModeEmergency:
		c.advanceBlinkLocked(dt)
	case entity.ModeNormal:
		c.advanceNormalLocked(dt)
	}
	return nil
}

// advanceNormalLocked 推进NORMAL模式状态机
// 算法说明：
// 事件步进，每次推进到最近的边界：
// 1. 有覆盖窗口时，边界为通行段或清空段的结束；基础相位计时同步递减但不低于0，
//    即行人服务可以延长相位的有效时长，但绝不截断（基础计时到0后由窗口保持）
// 2. 无覆盖窗口时，边界为基础相位结束；剩余dt结转进入后继状态
// 3. 基础计时与覆盖窗口都耗尽后切换到后继状态，新状态计时器重置为配置时长
func (c *SignalController) advanceNormalLocked(dt float64) {
	r := &c.runtime
	for dt > 0 {
		if r.overlay != nil {
			o := r.overlay
			var step float64
			if o.walking() {
				step = min(dt, o.walkRemaining)
				o.walkRemaining -= step
			} else {
				step = min(dt, o.clearRemaining)
				o.clearRemaining -= step
			}
			r.remainingT = max(0, r.remainingT-step)
			dt -= step
			if !o.walking() && o.clearRemaining <= 0 {
				r.overlay = nil
				log.Infof("pedestrian service for street %v complete", o.street)
				if r.remainingT <= 0 {
					c.transitionLocked()
				}
			}
			continue
		}
		if dt < r.remainingT {
			r.remainingT -= dt
			return
		}
		dt -= r.remainingT
		r.remainingT = 0
		c.transitionLocked()
	}
}

// transitionLocked 切换到后继状态
func (c *SignalController) transitionLocked() {
	next := c.table.Successor(c.runtime.state)
	log.Debugf("state %v -> %v", c.runtime.state, next)
	c.runtime.state = next
	c.runtime.remainingT = c.table.Duration(next)
	c.enterStateLocked()
}

// RequestPedestrian 登记行人过街请求
// 功能：设置对应街道的挂起标志；已挂起时重复请求合并为一次，不产生额外服务
// 参数：street-请求过街的街道
// 返回：街道取值非法时返回ErrInvalidInput
func (c *SignalController) RequestPedestrian(street entity.Street) error {
	if !street.Valid() {
		return fmt.Errorf("%w: unknown street %v", ErrInvalidInput, street)
	}
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.runtime.pending[street] {
		return nil
	}
	c.runtime.pending[street] = true
	log.Infof("pedestrian request for street %v registered", street)
	return nil
}

// SetMode 切换运行模式
// 功能：进入NORMAL时状态机重置到循环起始状态；离开NORMAL时丢弃进行中的
// 定时器与覆盖窗口，但保留挂起的行人请求
// 参数：mode-目标模式
// 返回：模式取值非法时返回ErrInvalidInput
// 说明：对NORMAL重复调用同样触发重置，用作安全锁定后的显式复位
func (c *SignalController) SetMode(mode entity.Mode) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: unknown mode %v", ErrInvalidInput, mode)
	}
	c.mtx.Lock()
	defer c.mtx.Unlock()
	prev := c.runtime.mode
	c.runtime.mode = mode
	c.runtime.overlay = nil
	c.runtime.blinkOn = true
	c.runtime.blinkRemaining = c.blinkInterval
	if mode == entity.ModeNormal {
		c.resetCycleLocked()
	}
	if prev != mode {
		log.Infof("mode %v -> %v", prev, mode)
	}
	return nil
}

// SetOk 设置输出链路健康状态
// 功能：false时锁定稳态安全图样（双向红灯+双向行人STOP）并冻结推进，
// 直到SetOk(true)后通过SetMode(NORMAL)显式复位
func (c *SignalController) SetOk(ok bool) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.runtime.ok == ok {
		return
	}
	c.runtime.ok = ok
	if !ok {
		log.Errorf("output failure reported, latching safe all-red pattern")
	} else {
		log.Warnf("output recovered, awaiting explicit reset to NORMAL")
	}
}

// Signals 获取当前信号分配（纯读取，反映上一次Prepare的结果）
func (c *SignalController) Signals() entity.SignalAssignment {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.signals
}

// State 获取当前状态
func (c *SignalController) State() entity.State {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.snapshot.state
}

// Mode 获取当前模式
func (c *SignalController) Mode() entity.Mode {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.snapshot.mode
}

// RemainingTime 获取当前状态剩余时间
// 返回：NORMAL模式下为基础相位剩余时间与覆盖窗口剩余时间的较大值，
// 其他模式下为INF（没有相位在计时）
func (c *SignalController) RemainingTime() float64 {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.snapshot.mode != entity.ModeNormal || !c.snapshot.ok {
		return mathutil.INF
	}
	remaining := c.snapshot.remainingT
	if o := c.snapshot.overlay; o != nil {
		remaining = max(remaining, o.walkRemaining+o.clearRemaining)
	}
	return remaining
}

// Ok 获取输出链路健康状态
func (c *SignalController) Ok() bool {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.snapshot.ok
}
