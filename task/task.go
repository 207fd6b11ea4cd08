package task

import (
	"fmt"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/intersection-ctl-oss/clock"
	"github.com/tsinghua-fib-lab/intersection-ctl-oss/controller"
	"github.com/tsinghua-fib-lab/intersection-ctl-oss/entity"
	"github.com/tsinghua-fib-lab/intersection-ctl-oss/input"
	"github.com/tsinghua-fib-lab/intersection-ctl-oss/output"
	"github.com/tsinghua-fib-lab/intersection-ctl-oss/recorder"
	"github.com/tsinghua-fib-lab/intersection-ctl-oss/utils/config"
)

// log 任务模块的日志记录器
var log = logrus.WithField("module", "task")

// shutdownClearance 停机序列中双向全红的保持时长（秒）
const shutdownClearance = 2.0

// Context 控制任务上下文
// 功能：包含一次控制任务的所有组件与状态，替代全局变量
// 说明：持有时钟、相位表、信控状态机、输出管理器、请求源与记录器
type Context struct {
	// 关闭指令
	closed atomic.Bool
	// 资源是否已释放
	released atomic.Bool

	// 时钟
	clock *clock.Clock
	// 运行时配置
	runtimeConfig *config.RuntimeConfig

	// 相位表
	table *controller.PhaseTable
	// 信控状态机
	controller entity.ISignalController
	// 输出管理器
	outputs entity.IOutputManager
	// 请求源
	inputs entity.IRequestSource
	// 记录器
	recorder entity.IRecorder

	// 上一轮观察到的状态与模式，用于变化记录
	lastState entity.State
	lastMode  entity.Mode
}

// NewContext 创建控制任务上下文
// 功能：校验配置并初始化全部组件
// 参数：c-配置对象
// 返回：初始化完成的Context实例；配置非法或外设初始化失败时返回错误
// 算法说明：
// 1. 配置校验与默认值填充（失败即阻止控制器构造）
// 2. 构造相位表与信控状态机
// 3. 按配置选择GPIO或控制台输出汇
// 4. 组装启用的请求源（键盘/MQTT/生成器）
// 5. 配置了MongoDB时创建记录器，否则使用空记录器
func NewContext(c config.Config) (*Context, error) {
	rc, err := config.NewRuntimeConfig(c)
	if err != nil {
		return nil, err
	}
	ctx := &Context{runtimeConfig: rc}
	ctx.clock = clock.New(rc.C.Step)

	ctx.table, err = controller.NewPhaseTable(rc.C)
	if err != nil {
		return nil, err
	}
	ctx.controller = controller.New(ctx, ctx.table)
	ctx.lastState = ctx.controller.State()
	ctx.lastMode = ctx.controller.Mode()

	var sink entity.IOutputSink
	if c.Output.GPIO.Enabled {
		sink, err = output.NewGPIOSink(c.Output.GPIO)
		if err != nil {
			return nil, fmt.Errorf("init gpio sink: %w", err)
		}
	} else {
		sink = output.NewConsoleSink()
	}
	ctx.outputs = output.NewManager(sink)

	sources := make([]entity.IRequestSource, 0)
	if c.Input.Keyboard {
		sources = append(sources, input.NewKeyboardSource())
	}
	if c.Input.MQTT != nil {
		mqttSource, err := input.NewMQTTSource(*c.Input.MQTT)
		if err != nil {
			return nil, fmt.Errorf("init mqtt source: %w", err)
		}
		sources = append(sources, mqttSource)
	}
	if c.Input.Generator != nil && c.Input.Generator.Enabled {
		sources = append(sources, input.NewGeneratorSource(*c.Input.Generator))
	}
	ctx.inputs = input.NewManager(sources...)

	if c.Recorder != nil && c.Recorder.URI != "" {
		ctx.recorder, err = recorder.New(*c.Recorder)
		if err != nil {
			return nil, fmt.Errorf("init recorder: %w", err)
		}
	} else {
		ctx.recorder = recorder.NewNop()
	}

	log.Infof("cycle: %v, length %.0fs", ctx.table.States(), ctx.table.CycleLength())
	return ctx, nil
}

// Clock 获取时钟
func (ctx *Context) Clock() *clock.Clock {
	return ctx.clock
}

// RuntimeConfig 获取运行时配置
func (ctx *Context) RuntimeConfig() *config.RuntimeConfig {
	return ctx.runtimeConfig
}

// Controller 获取信控状态机
func (ctx *Context) Controller() entity.ISignalController {
	return ctx.controller
}

// Stop 请求停止驱动循环
// 说明：可从信号处理协程调用，循环在当前轮询结束后退出
func (ctx *Context) Stop() {
	ctx.closed.Store(true)
}

// Close 停止并释放全部资源
// 功能：停止请求源，执行安全停机序列（全红->保持->全灭->释放），冲刷记录器
// 说明：幂等，所有退出路径都会经过这里
func (ctx *Context) Close() {
	if !ctx.released.CompareAndSwap(false, true) {
		return
	}
	ctx.closed.Store(true)
	if err := ctx.inputs.Close(); err != nil {
		log.Errorf("close inputs: %v", err)
	}
	if err := ctx.outputs.Shutdown(shutdownClearance); err != nil {
		log.Errorf("shutdown outputs: %v", err)
	}
	if err := ctx.recorder.Close(); err != nil {
		log.Errorf("close recorder: %v", err)
	}
	log.Infof("controller shutdown complete")
}
