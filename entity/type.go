package entity

import (
	"fmt"
	"time"
)

// Street 路口的两条街道
// 功能：标识路口中的一条街道，V为纵向街道，H为横向街道
type Street uint8

const (
	StreetV Street = iota // 纵向街道
	StreetH               // 横向街道

	NumStreets = 2 // 街道数量
)

// String 获取街道的字符串表示
func (s Street) String() string {
	switch s {
	case StreetV:
		return "V"
	case StreetH:
		return "H"
	default:
		return fmt.Sprintf("Street(%d)", uint8(s))
	}
}

// Valid 判断街道取值是否合法
func (s Street) Valid() bool {
	return s < NumStreets
}

// Other 获取相对的另一条街道
func (s Street) Other() Street {
	if s == StreetV {
		return StreetH
	}
	return StreetV
}

// ParseStreet 解析街道名
// 功能：解析"V"/"H"（不区分大小写），未知值返回错误
func ParseStreet(s string) (Street, error) {
	switch s {
	case "V", "v":
		return StreetV, nil
	case "H", "h":
		return StreetH, nil
	default:
		return 0, fmt.Errorf("unknown street %q", s)
	}
}

// Channel 信号输出通道
// 功能：标识一个可独立开关的信号灯通道，包括两条街道的机动车三色灯与行人灯
// 说明：通道与硬件引脚的映射由Output Sink持有，核心不感知引脚编号
type Channel uint8

const (
	ChannelVRed Channel = iota
	ChannelVYellow
	ChannelVGreen
	ChannelHRed
	ChannelHYellow
	ChannelHGreen
	ChannelVPedWalk
	ChannelVPedStop
	ChannelHPedWalk
	ChannelHPedStop

	NumChannels = 10 // 通道数量
)

var channelNames = [NumChannels]string{
	"V_RED", "V_YELLOW", "V_GREEN",
	"H_RED", "H_YELLOW", "H_GREEN",
	"V_PED_WALK", "V_PED_STOP", "H_PED_WALK", "H_PED_STOP",
}

// String 获取通道的字符串表示
func (c Channel) String() string {
	if c < NumChannels {
		return channelNames[c]
	}
	return fmt.Sprintf("Channel(%d)", uint8(c))
}

// Valid 判断通道取值是否合法
func (c Channel) Valid() bool {
	return c < NumChannels
}

// State 车流信号周期中的一个相位状态
// 功能：封闭枚举，状态机在任意时刻恰好处于其中一个状态
// 说明：ALL_RED为安全清空相位，可通过配置去除（4状态变体）
type State uint8

const (
	StateVGreen State = iota
	StateVYellow
	StateAllRed1
	StateHGreen
	StateHYellow
	StateAllRed2

	NumStates = 6 // 状态数量（含ALL_RED）
)

var stateNames = [NumStates]string{
	"V_GREEN", "V_YELLOW", "ALL_RED_1", "H_GREEN", "H_YELLOW", "ALL_RED_2",
}

// String 获取状态的字符串表示
func (s State) String() string {
	if s < NumStates {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// Valid 判断状态取值是否合法
func (s State) Valid() bool {
	return s < NumStates
}

// Mode 控制器运行模式
// 功能：顶层运行模式，NORMAL驱动状态机，其余三种模式挂起状态机并输出固定模式
type Mode uint8

const (
	ModeNormal      Mode = iota // 正常信控
	ModeNight                   // 夜间模式，双向黄灯闪烁
	ModeMaintenance             // 维护模式，全部熄灭
	ModeEmergency               // 紧急模式，双向红灯闪烁

	NumModes = 4 // 模式数量
)

var modeNames = [NumModes]string{"NORMAL", "NIGHT", "MAINTENANCE", "EMERGENCY"}

// String 获取模式的字符串表示
func (m Mode) String() string {
	if m < NumModes {
		return modeNames[m]
	}
	return fmt.Sprintf("Mode(%d)", uint8(m))
}

// Valid 判断模式取值是否合法
func (m Mode) Valid() bool {
	return m < NumModes
}

// ParseMode 解析模式名
// 功能：解析NORMAL/NIGHT/MAINTENANCE/EMERGENCY，未知值返回错误
func ParseMode(s string) (Mode, error) {
	for m := Mode(0); m < NumModes; m++ {
		if s == modeNames[m] {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown mode %q", s)
}

// SignalAssignment 全部通道的开关状态
// 功能：从(State, 行人覆盖窗口, Mode)确定性导出的信号分配结果
// 说明：值类型，可直接比较与拷贝
type SignalAssignment [NumChannels]bool

// Get 获取指定通道的开关状态
func (a SignalAssignment) Get(c Channel) bool {
	return a[c]
}

// Set 设置指定通道的开关状态
func (a *SignalAssignment) Set(c Channel, on bool) {
	a[c] = on
}

// SignalChange 单个通道的状态变化
type SignalChange struct {
	Channel Channel // 变化的通道
	On      bool    // 变化后的状态
}

// Diff 计算从prev到当前分配的通道变化列表
// 功能：逐通道比较，产生需要下发到Output Sink的最小变更集
// 参数：prev-上一次的信号分配
// 返回：发生变化的通道及其新状态，按通道序号排列
func (a SignalAssignment) Diff(prev SignalAssignment) []SignalChange {
	changes := make([]SignalChange, 0, NumChannels)
	for c := Channel(0); c < NumChannels; c++ {
		if a[c] != prev[c] {
			changes = append(changes, SignalChange{Channel: c, On: a[c]})
		}
	}
	return changes
}

// String 获取信号分配的字符串表示（仅列出点亮的通道）
func (a SignalAssignment) String() string {
	s := ""
	for c := Channel(0); c < NumChannels; c++ {
		if a[c] {
			if s != "" {
				s += "|"
			}
			s += c.String()
		}
	}
	if s == "" {
		return "OFF"
	}
	return s
}

// EventKind 请求源产生的事件类型
type EventKind uint8

const (
	EventPedestrianRequest EventKind = iota // 行人过街请求
	EventModeChange                         // 模式切换
	EventEmergencyAssert                    // 紧急状态进入
	EventEmergencyClear                     // 紧急状态解除
)

// String 获取事件类型的字符串表示
func (k EventKind) String() string {
	switch k {
	case EventPedestrianRequest:
		return "PEDESTRIAN_REQUEST"
	case EventModeChange:
		return "MODE_CHANGE"
	case EventEmergencyAssert:
		return "EMERGENCY_ASSERT"
	case EventEmergencyClear:
		return "EMERGENCY_CLEAR"
	default:
		return fmt.Sprintf("EventKind(%d)", uint8(k))
	}
}

// Event 请求源产生的离散事件
// 功能：键盘、MQTT或模拟生成器产生的一条控制输入
// 说明：同一轮poll内按到达时间顺序交给控制器处理
type Event struct {
	Kind   EventKind // 事件类型
	Street Street    // 行人请求的街道（仅EventPedestrianRequest有效）
	Mode   Mode      // 目标模式（仅EventModeChange有效）
	Time   time.Time // 到达时间
	Source string    // 事件来源（keyboard/mqtt/generator）
}

// String 获取事件的字符串表示
func (e Event) String() string {
	switch e.Kind {
	case EventPedestrianRequest:
		return fmt.Sprintf("Event{%v street=%v source=%s}", e.Kind, e.Street, e.Source)
	case EventModeChange:
		return fmt.Sprintf("Event{%v mode=%v source=%s}", e.Kind, e.Mode, e.Source)
	default:
		return fmt.Sprintf("Event{%v source=%s}", e.Kind, e.Source)
	}
}
