package task

import (
	"flag"
	"time"

	"github.com/tsinghua-fib-lab/intersection-ctl-oss/entity"
)

var (
	heartBeatInterval = flag.Int("log.heartbeat_interval", 100, "心跳日志间隔步数")
)

// prepare 准备阶段，每步执行一次
// 功能：输出心跳日志，取出请求源事件并交给控制器
// 说明：同一批事件按到达时间顺序处理；越界输入被拒绝并记日志，不改变状态
func (ctx *Context) prepare() {
	if ctx.clock.Step%int64(*heartBeatInterval) == 0 {
		hour, minute, second := ctx.clock.GetHourMinuteSecond()
		log.Infof(
			"STEP: %d(%d:%d:%.2f) state=%v mode=%v remaining=%.1fs",
			ctx.clock.Step,
			hour, minute, second,
			ctx.controller.State(), ctx.controller.Mode(), ctx.controller.RemainingTime(),
		)
	}

	for _, e := range ctx.inputs.Poll() {
		log.Debugf("event: %v", e)
		var err error
		switch e.Kind {
		case entity.EventPedestrianRequest:
			err = ctx.controller.RequestPedestrian(e.Street)
		case entity.EventModeChange:
			err = ctx.controller.SetMode(e.Mode)
		case entity.EventEmergencyAssert:
			err = ctx.controller.SetMode(entity.ModeEmergency)
		case entity.EventEmergencyClear:
			err = ctx.controller.SetMode(entity.ModeNormal)
		}
		if err != nil {
			log.Errorf("event %v rejected: %v", e, err)
		}
	}
}

// update 更新阶段，每步执行一次
// 功能：推进控制器定时器，重算信号分配并差量下发，记录变化
// 参数：dt-距上一轮询的真实耗时（秒）
// 算法说明：
// 1. 推进状态机（大dt在控制器内部跨越多个状态）
// 2. Prepare重算snapshot信号分配
// 3. 差量下发到输出汇；失败时上报控制器锁定安全全红，不做静默重试
// 4. 状态/模式变化与通道变化写入记录器
func (ctx *Context) update(dt float64) {
	if err := ctx.controller.Update(dt); err != nil {
		log.Errorf("update rejected: %v", err)
	}
	ctx.controller.Prepare()

	changes, err := ctx.outputs.Apply(ctx.controller.Signals())
	if err != nil {
		log.Errorf("output failure: %v", err)
		ctx.controller.SetOk(false)
	}
	if state, mode := ctx.controller.State(), ctx.controller.Mode(); state != ctx.lastState || mode != ctx.lastMode {
		ctx.recorder.RecordTransition(ctx.clock.T, state, mode)
		ctx.lastState = state
		ctx.lastMode = mode
	}
	if len(changes) > 0 {
		ctx.recorder.RecordChanges(ctx.clock.T, changes)
	}
}

// startupFlash 启动闪烁序列
// 功能：进入循环前双向黄灯闪烁三次，提示系统上电
// 说明：来自原始部署的上电自检习惯；输出失败时中止序列并记日志
func (ctx *Context) startupFlash() {
	if !ctx.runtimeConfig.C.StartupFlashEnabled() {
		return
	}
	var yellow entity.SignalAssignment
	yellow.Set(entity.ChannelVYellow, true)
	yellow.Set(entity.ChannelHYellow, true)
	for i := 0; i < 3; i++ {
		if _, err := ctx.outputs.Apply(yellow); err != nil {
			log.Errorf("startup flash aborted: %v", err)
			return
		}
		time.Sleep(500 * time.Millisecond)
		if _, err := ctx.outputs.Apply(entity.SignalAssignment{}); err != nil {
			log.Errorf("startup flash aborted: %v", err)
			return
		}
		time.Sleep(500 * time.Millisecond)
	}
	log.Infof("startup sequence complete")
}

// Run 运行驱动循环
// 功能：协作式轮询循环，直到Stop被调用或进程收到中断
// 算法说明：每轮依次执行 计时->prepare（事件）->update（推进+下发）->等待下一轮询时刻
func (ctx *Context) Run() {
	ctx.startupFlash()
	ctx.clock.Init()
	for !ctx.closed.Load() {
		dt := ctx.clock.Tick()
		ctx.prepare()
		ctx.update(dt)
		ctx.clock.WaitNext()
	}
	log.Infof("loop complete")
	ctx.Close()
}
