package controller

import (
	"errors"
	"fmt"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/intersection-ctl-oss/entity"
	"github.com/tsinghua-fib-lab/intersection-ctl-oss/utils/config"
)

var (
	// ErrPhaseTable 相位表构造失败（配置不满足不变量）
	ErrPhaseTable = errors.New("phase table violates invariants")
)

// PhaseDescriptor 单个相位的静态描述
// 功能：描述一个状态的持续时间、基础信号分配与行人放行资格
// 说明：启动时构造一次，之后只读
type PhaseDescriptor struct {
	State       entity.State                 // 所属状态
	Duration    float64                      // 持续时间（秒），必须为正
	Base        entity.SignalAssignment      // 基础信号分配（机动车三色灯+双向行人STOP）
	PedEligible [entity.NumStreets]bool      // 各街道在本状态下是否可放行行人
}

// PhaseTable 相位表
// 功能：状态到相位描述的静态映射，定义固定的单一循环顺序
// 说明：后继函数是全函数，沿循环一周后回到起点
type PhaseTable struct {
	phases []PhaseDescriptor    // 按循环顺序排列的相位
	index  map[entity.State]int // 状态->相位下标
}

// baseSignalsOf 计算状态的基础信号分配
// 算法说明：
// 1. 每条街道三色灯中恰好点亮一盏
// 2. 双向行人默认STOP，WALK由行人覆盖窗口叠加
func baseSignalsOf(st entity.State) entity.SignalAssignment {
	var a entity.SignalAssignment
	switch st {
	case entity.StateVGreen:
		a.Set(entity.ChannelVGreen, true)
		a.Set(entity.ChannelHRed, true)
	case entity.StateVYellow:
		a.Set(entity.ChannelVYellow, true)
		a.Set(entity.ChannelHRed, true)
	case entity.StateHGreen:
		a.Set(entity.ChannelHGreen, true)
		a.Set(entity.ChannelVRed, true)
	case entity.StateHYellow:
		a.Set(entity.ChannelHYellow, true)
		a.Set(entity.ChannelVRed, true)
	case entity.StateAllRed1, entity.StateAllRed2:
		a.Set(entity.ChannelVRed, true)
		a.Set(entity.ChannelHRed, true)
	}
	a.Set(entity.ChannelVPedStop, true)
	a.Set(entity.ChannelHPedStop, true)
	return a
}

// NewPhaseTable 根据控制配置构造相位表
// 功能：生成固定循环的相位序列并校验不变量
// 参数：c-控制配置（已填充默认值）
// 返回：相位表；不变量被破坏时返回ErrPhaseTable包装的错误
// 算法说明：
// 1. 生成循环顺序：V绿->V黄->[全红]->H绿->H黄->[全红]，全红相位可由配置去除
// 2. 设置放行资格：V绿放行V侧行人，H绿放行H侧行人
// 3. 校验：时长为正、双向不同时为绿、每街道三色灯恰好一盏
func NewPhaseTable(c config.Control) (*PhaseTable, error) {
	t := c.Timing
	states := []entity.State{
		entity.StateVGreen, entity.StateVYellow, entity.StateAllRed1,
		entity.StateHGreen, entity.StateHYellow, entity.StateAllRed2,
	}
	if !c.AllRedEnabled() {
		states = lo.Filter(states, func(s entity.State, _ int) bool {
			return s != entity.StateAllRed1 && s != entity.StateAllRed2
		})
	}
	durations := map[entity.State]float64{
		entity.StateVGreen:  t.VehicleGreen,
		entity.StateVYellow: t.VehicleYellow,
		entity.StateAllRed1: t.AllRed,
		entity.StateHGreen:  t.VehicleGreen,
		entity.StateHYellow: t.VehicleYellow,
		entity.StateAllRed2: t.AllRed,
	}
	phases := lo.Map(states, func(s entity.State, _ int) PhaseDescriptor {
		p := PhaseDescriptor{
			State:    s,
			Duration: durations[s],
			Base:     baseSignalsOf(s),
		}
		switch s {
		case entity.StateVGreen:
			p.PedEligible[entity.StreetV] = true
		case entity.StateHGreen:
			p.PedEligible[entity.StreetH] = true
		}
		return p
	})

	table := &PhaseTable{
		phases: phases,
		index:  make(map[entity.State]int, len(phases)),
	}
	for i, p := range phases {
		table.index[p.State] = i
	}
	if err := table.validate(); err != nil {
		return nil, err
	}
	return table, nil
}

// validate 校验相位表的不变量
func (t *PhaseTable) validate() error {
	if len(t.phases) == 0 {
		return fmt.Errorf("%w: empty cycle", ErrPhaseTable)
	}
	for _, p := range t.phases {
		if p.Duration <= 0 {
			return fmt.Errorf("%w: state %v has non-positive duration %v", ErrPhaseTable, p.State, p.Duration)
		}
		if p.Base.Get(entity.ChannelVGreen) && p.Base.Get(entity.ChannelHGreen) {
			return fmt.Errorf("%w: state %v sets both streets green", ErrPhaseTable, p.State)
		}
		for _, group := range [][]entity.Channel{
			{entity.ChannelVRed, entity.ChannelVYellow, entity.ChannelVGreen},
			{entity.ChannelHRed, entity.ChannelHYellow, entity.ChannelHGreen},
		} {
			on := lo.CountBy(group, func(c entity.Channel) bool { return p.Base.Get(c) })
			if on != 1 {
				return fmt.Errorf("%w: state %v lights %d vehicle levels on one street", ErrPhaseTable, p.State, on)
			}
		}
	}
	return nil
}

// First 获取循环的起始状态
func (t *PhaseTable) First() entity.State {
	return t.phases[0].State
}

// States 获取循环顺序的全部状态
func (t *PhaseTable) States() []entity.State {
	return lo.Map(t.phases, func(p PhaseDescriptor, _ int) entity.State { return p.State })
}

// Contains 判断状态是否在循环内
func (t *PhaseTable) Contains(s entity.State) bool {
	_, ok := t.index[s]
	return ok
}

// get 查找状态对应的相位描述，不存在则panic
// 说明：控制器只持有表内状态，不在表内说明程序有bug
func (t *PhaseTable) get(s entity.State) PhaseDescriptor {
	i, ok := t.index[s]
	if !ok {
		log.Panicf("state %v not in phase table", s)
	}
	return t.phases[i]
}

// Duration 获取状态的持续时间（秒）
func (t *PhaseTable) Duration(s entity.State) float64 {
	return t.get(s).Duration
}

// BaseSignals 获取状态的基础信号分配
func (t *PhaseTable) BaseSignals(s entity.State) entity.SignalAssignment {
	return t.get(s).Base
}

// PedestrianEligible 判断街道在状态下是否可放行行人
func (t *PhaseTable) PedestrianEligible(s entity.State, street entity.Street) bool {
	return t.get(s).PedEligible[street]
}

// Successor 获取循环中的后继状态
func (t *PhaseTable) Successor(s entity.State) entity.State {
	return t.phases[(t.index[s]+1)%len(t.phases)].State
}

// CycleLength 获取一个完整循环的总时长（秒）
func (t *PhaseTable) CycleLength() float64 {
	return lo.SumBy(t.phases, func(p PhaseDescriptor) float64 { return p.Duration })
}
