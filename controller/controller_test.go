package controller_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/intersection-ctl-oss/clock"
	"github.com/tsinghua-fib-lab/intersection-ctl-oss/controller"
	"github.com/tsinghua-fib-lab/intersection-ctl-oss/entity"
	"github.com/tsinghua-fib-lab/intersection-ctl-oss/utils/config"
)

// stubContext 测试用任务上下文
type stubContext struct {
	rc *config.RuntimeConfig
}

func (s *stubContext) Clock() *clock.Clock { return nil }

func (s *stubContext) RuntimeConfig() *config.RuntimeConfig { return s.rc }

func newController(t *testing.T, c config.Config) *controller.SignalController {
	t.Helper()
	rc, err := config.NewRuntimeConfig(c)
	require.NoError(t, err)
	table, err := controller.NewPhaseTable(rc.C)
	require.NoError(t, err)
	ctl := controller.New(&stubContext{rc: rc}, table)
	ctl.Prepare()
	return ctl
}

// advance 推进并刷新snapshot
func advance(t *testing.T, ctl *controller.SignalController, dt float64) {
	t.Helper()
	require.NoError(t, ctl.Update(dt))
	ctl.Prepare()
}

func TestCycleSequence(t *testing.T) {
	ctl := newController(t, config.Config{})
	assert.Equal(t, entity.StateVGreen, ctl.State())
	assert.Equal(t, entity.ModeNormal, ctl.Mode())
	assert.InDelta(t, 9.0, ctl.RemainingTime(), 1e-9)

	// 整秒步进两个完整循环，记录状态切换序列
	var transitions []entity.State
	last := ctl.State()
	for i := 0; i < 52; i++ {
		advance(t, ctl, 1.0)
		assertOneVehicleLevel(t, ctl.Signals())
		a := ctl.Signals()
		assert.False(t, a.Get(entity.ChannelVGreen) && a.Get(entity.ChannelHGreen))
		if s := ctl.State(); s != last {
			transitions = append(transitions, s)
			last = s
		}
	}
	assert.Equal(t, []entity.State{
		entity.StateVYellow, entity.StateAllRed1, entity.StateHGreen,
		entity.StateHYellow, entity.StateAllRed2, entity.StateVGreen,
		entity.StateVYellow, entity.StateAllRed1, entity.StateHGreen,
		entity.StateHYellow, entity.StateAllRed2, entity.StateVGreen,
	}, transitions)
}

func TestLargeDtCrossesStates(t *testing.T) {
	ctl := newController(t, config.Config{})
	// 一次推进跨越绿、黄、全红三个状态，落点在H_GREEN内
	advance(t, ctl, 13.5)
	assert.Equal(t, entity.StateHGreen, ctl.State())
	assert.InDelta(t, 8.5, ctl.RemainingTime(), 1e-9)
}

func TestPedestrianExtension(t *testing.T) {
	ctl := newController(t, config.Config{})

	// t=2：V_GREEN内登记H街道请求
	advance(t, ctl, 2)
	require.NoError(t, ctl.RequestPedestrian(entity.StreetH))
	a := ctl.Signals()
	assert.False(t, a.Get(entity.ChannelHPedWalk), "request must wait for the serving state")

	// t=13：进入H_GREEN，WALK开启
	advance(t, ctl, 11)
	assert.Equal(t, entity.StateHGreen, ctl.State())
	a = ctl.Signals()
	assert.True(t, a.Get(entity.ChannelHPedWalk))
	assert.False(t, a.Get(entity.ChannelHPedStop))
	assert.True(t, a.Get(entity.ChannelVPedStop))
	assert.InDelta(t, 10.0, ctl.RemainingTime(), 1e-9)

	// t=21：通行段结束，进入清空段，车辆绿灯被延长保持
	advance(t, ctl, 8)
	assert.Equal(t, entity.StateHGreen, ctl.State())
	a = ctl.Signals()
	assert.False(t, a.Get(entity.ChannelHPedWalk))
	assert.True(t, a.Get(entity.ChannelHPedStop))
	assert.True(t, a.Get(entity.ChannelHGreen))
	assert.InDelta(t, 2.0, ctl.RemainingTime(), 1e-9)

	// t=23：清空段结束，基础计时已耗尽，切换到H_YELLOW
	advance(t, ctl, 2)
	assert.Equal(t, entity.StateHYellow, ctl.State())
	assert.InDelta(t, 3.0, ctl.RemainingTime(), 1e-9)
}

func TestPedestrianContained(t *testing.T) {
	// 行人窗口短于绿灯时不延长相位
	c := config.Config{}
	c.Control.Timing = config.Timing{PedestrianWalk: 3, PedestrianClearance: 2}
	ctl := newController(t, c)

	require.NoError(t, ctl.RequestPedestrian(entity.StreetH))
	advance(t, ctl, 13)
	assert.Equal(t, entity.StateHGreen, ctl.State())
	assert.True(t, ctl.Signals().Get(entity.ChannelHPedWalk))

	// t=18：窗口结束，绿灯照常计时
	advance(t, ctl, 5)
	assert.Equal(t, entity.StateHGreen, ctl.State())
	assert.False(t, ctl.Signals().Get(entity.ChannelHPedWalk))
	assert.InDelta(t, 4.0, ctl.RemainingTime(), 1e-9)

	// t=22：名义边界切换，未被窗口推迟
	advance(t, ctl, 4)
	assert.Equal(t, entity.StateHYellow, ctl.State())
}

func TestRequestCoalescing(t *testing.T) {
	ctl := newController(t, config.Config{})
	for i := 0; i < 3; i++ {
		require.NoError(t, ctl.RequestPedestrian(entity.StreetV))
	}

	// V_GREEN进行中登记的请求等到下一次进入V_GREEN才放行，且只放行一次
	walkWindows := 0
	walking := false
	for i := 0; i < 120; i++ {
		advance(t, ctl, 0.5)
		on := ctl.Signals().Get(entity.ChannelVPedWalk)
		if on && !walking {
			walkWindows++
		}
		walking = on
	}
	assert.Equal(t, 1, walkWindows)
}

func TestPendingPerStreet(t *testing.T) {
	ctl := newController(t, config.Config{})
	require.NoError(t, ctl.RequestPedestrian(entity.StreetV))
	require.NoError(t, ctl.RequestPedestrian(entity.StreetH))

	// t=13.5：H_GREEN放行H，V保持挂起
	advance(t, ctl, 13.5)
	a := ctl.Signals()
	assert.True(t, a.Get(entity.ChannelHPedWalk))
	assert.False(t, a.Get(entity.ChannelVPedWalk))

	// H窗口延长绿灯到t=23，下一次V_GREEN从t=27开始
	advance(t, ctl, 14)
	assert.Equal(t, entity.StateVGreen, ctl.State())
	assert.True(t, ctl.Signals().Get(entity.ChannelVPedWalk))
}

func TestNightBlink(t *testing.T) {
	ctl := newController(t, config.Config{})
	require.NoError(t, ctl.SetMode(entity.ModeNight))
	ctl.Prepare()

	a := ctl.Signals()
	assert.True(t, a.Get(entity.ChannelVYellow))
	assert.True(t, a.Get(entity.ChannelHYellow))
	assert.False(t, a.Get(entity.ChannelVPedStop))
	assert.True(t, math.IsInf(ctl.RemainingTime(), 1))

	// 默认1s间隔翻转
	advance(t, ctl, 1)
	a = ctl.Signals()
	assert.False(t, a.Get(entity.ChannelVYellow))
	assert.False(t, a.Get(entity.ChannelHYellow))

	advance(t, ctl, 1)
	assert.True(t, ctl.Signals().Get(entity.ChannelVYellow))
}

func TestEmergencyBlink(t *testing.T) {
	ctl := newController(t, config.Config{})
	require.NoError(t, ctl.SetMode(entity.ModeEmergency))
	ctl.Prepare()

	a := ctl.Signals()
	assert.True(t, a.Get(entity.ChannelVRed))
	assert.True(t, a.Get(entity.ChannelHRed))
	assert.True(t, a.Get(entity.ChannelVPedStop))
	assert.True(t, a.Get(entity.ChannelHPedStop))

	// 红灯闪烁，行人STOP常亮
	advance(t, ctl, 1)
	a = ctl.Signals()
	assert.False(t, a.Get(entity.ChannelVRed))
	assert.True(t, a.Get(entity.ChannelVPedStop))
	assert.True(t, a.Get(entity.ChannelHPedStop))
}

func TestMaintenanceDark(t *testing.T) {
	ctl := newController(t, config.Config{})
	require.NoError(t, ctl.SetMode(entity.ModeMaintenance))
	advance(t, ctl, 100)

	assert.Equal(t, entity.SignalAssignment{}, ctl.Signals())
	assert.True(t, math.IsInf(ctl.RemainingTime(), 1))
}

func TestModeResetToCycleStart(t *testing.T) {
	ctl := newController(t, config.Config{})
	advance(t, ctl, 15)
	require.Equal(t, entity.StateHGreen, ctl.State())

	require.NoError(t, ctl.SetMode(entity.ModeNight))
	advance(t, ctl, 3)
	require.NoError(t, ctl.SetMode(entity.ModeNormal))
	ctl.Prepare()

	// 回到NORMAL不保留进度，从循环起点重新开始
	assert.Equal(t, entity.StateVGreen, ctl.State())
	assert.InDelta(t, 9.0, ctl.RemainingTime(), 1e-9)

	// 已处于NORMAL时重复设置同样重置
	advance(t, ctl, 5)
	require.NoError(t, ctl.SetMode(entity.ModeNormal))
	ctl.Prepare()
	assert.InDelta(t, 9.0, ctl.RemainingTime(), 1e-9)
}

func TestPendingSurvivesModeChange(t *testing.T) {
	ctl := newController(t, config.Config{})
	require.NoError(t, ctl.RequestPedestrian(entity.StreetV))
	require.NoError(t, ctl.SetMode(entity.ModeEmergency))
	require.NoError(t, ctl.SetMode(entity.ModeNormal))
	ctl.Prepare()

	// 挂起请求在重置后的V_GREEN入口立即放行
	assert.Equal(t, entity.StateVGreen, ctl.State())
	assert.True(t, ctl.Signals().Get(entity.ChannelVPedWalk))
}

func TestInvalidInputs(t *testing.T) {
	ctl := newController(t, config.Config{})

	err := ctl.Update(-0.1)
	assert.ErrorIs(t, err, controller.ErrInvalidInput)
	ctl.Prepare()
	assert.Equal(t, entity.StateVGreen, ctl.State())
	assert.InDelta(t, 9.0, ctl.RemainingTime(), 1e-9)

	assert.ErrorIs(t, ctl.RequestPedestrian(entity.Street(5)), controller.ErrInvalidInput)
	assert.ErrorIs(t, ctl.SetMode(entity.Mode(9)), controller.ErrInvalidInput)
	assert.Equal(t, entity.ModeNormal, ctl.Mode())
}

func TestSafetyLatch(t *testing.T) {
	ctl := newController(t, config.Config{})
	advance(t, ctl, 5)

	ctl.SetOk(false)
	ctl.Prepare()
	assert.False(t, ctl.Ok())
	a := ctl.Signals()
	assert.True(t, a.Get(entity.ChannelVRed))
	assert.True(t, a.Get(entity.ChannelHRed))
	assert.True(t, a.Get(entity.ChannelVPedStop))
	assert.True(t, a.Get(entity.ChannelHPedStop))
	assert.False(t, a.Get(entity.ChannelVGreen))
	assert.True(t, math.IsInf(ctl.RemainingTime(), 1))

	// 锁定期间冻结一切推进
	advance(t, ctl, 30)
	assert.Equal(t, entity.StateVGreen, ctl.State())

	// 恢复后需显式复位到NORMAL才继续运行
	ctl.SetOk(true)
	require.NoError(t, ctl.SetMode(entity.ModeNormal))
	ctl.Prepare()
	assert.True(t, ctl.Ok())
	assert.Equal(t, entity.StateVGreen, ctl.State())
	assert.InDelta(t, 9.0, ctl.RemainingTime(), 1e-9)
}

func TestFourStateCycle(t *testing.T) {
	c := config.Config{}
	withAllRed := false
	c.Control.WithAllRed = &withAllRed
	ctl := newController(t, c)

	var transitions []entity.State
	last := ctl.State()
	for i := 0; i < 24; i++ {
		advance(t, ctl, 1.0)
		assertOneVehicleLevel(t, ctl.Signals())
		if s := ctl.State(); s != last {
			transitions = append(transitions, s)
			last = s
		}
	}
	assert.Equal(t, []entity.State{
		entity.StateVYellow, entity.StateHGreen,
		entity.StateHYellow, entity.StateVGreen,
	}, transitions)
}
