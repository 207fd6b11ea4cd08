package config

// ControlStep 轮询循环的时间配置
// 功能：定义驱动循环的轮询间隔
// 说明：间隔即为时序抖动预算，状态切换保证发生在名义边界之后的一个间隔内
type ControlStep struct {
	Interval float64 `yaml:"interval"` // 每次轮询的时间间隔（秒），默认0.1
}

// Timing 各相位与行人窗口的时长配置（秒）
type Timing struct {
	VehicleGreen        float64 `yaml:"vehicle_green"`        // 机动车绿灯时长，默认9
	VehicleYellow       float64 `yaml:"vehicle_yellow"`       // 机动车黄灯时长，默认3
	AllRed              float64 `yaml:"all_red"`              // 全红清空时长，默认1
	PedestrianWalk      float64 `yaml:"pedestrian_walk"`      // 行人通行时长，默认8
	PedestrianClearance float64 `yaml:"pedestrian_clearance"` // 行人清空时长，默认2
}

// Control 控制器核心配置
type Control struct {
	Step          ControlStep `yaml:"step"`
	Timing        Timing      `yaml:"timing"`
	WithAllRed    *bool       `yaml:"with_all_red,omitempty"`   // 是否插入全红清空相位，默认true
	BlinkInterval float64     `yaml:"blink_interval,omitempty"` // 夜间/紧急模式闪烁间隔（秒），默认1
	StartupFlash  *bool       `yaml:"startup_flash,omitempty"`  // 启动时双向黄灯闪烁三次，默认true
}

// GPIOOutput GPIO输出配置
// 功能：通道到硬件引脚名的映射，引脚编号对核心不可见
type GPIOOutput struct {
	Enabled bool              `yaml:"enabled"`        // 是否启用GPIO输出（否则输出到控制台）
	Pins    map[string]string `yaml:"pins,omitempty"` // 通道名->引脚名，如 V_RED: GPIO17
}

// Output 输出配置
type Output struct {
	GPIO GPIOOutput `yaml:"gpio"`
}

// MQTTInput MQTT远程请求源配置
// 说明：用户名与口令从环境变量MQTT_USERNAME/MQTT_PASSWORD读取
type MQTTInput struct {
	Broker   string `yaml:"broker"`              // broker地址，如 tls://host:8883
	Topic    string `yaml:"topic,omitempty"`     // 控制主题，默认 intersection/control
	ClientID string `yaml:"client_id,omitempty"` // 客户端ID，默认 intersection-ctl
}

// GeneratorInput 模拟请求生成器配置
type GeneratorInput struct {
	Enabled  bool    `yaml:"enabled"`   // 是否启用
	Seed     uint64  `yaml:"seed"`      // 随机数种子
	PRequest float64 `yaml:"p_request"` // 每次轮询产生一条行人请求的概率
}

// Input 请求源配置
type Input struct {
	Keyboard  bool            `yaml:"keyboard"`            // 是否启用键盘输入
	MQTT      *MQTTInput      `yaml:"mqtt,omitempty"`      // MQTT请求源（可选）
	Generator *GeneratorInput `yaml:"generator,omitempty"` // 模拟请求生成器（可选）
}

// Recorder 信号变化记录配置（MongoDB）
type Recorder struct {
	URI string `yaml:"uri"` // MongoDB连接字符串，为空则禁用记录
	DB  string `yaml:"db"`  // 数据库名
	Col string `yaml:"col"` // 集合名
}

// Config YAML配置文件的根结构
type Config struct {
	Control  Control   `yaml:"control"`            // 控制器核心配置
	Output   Output    `yaml:"output"`             // 输出配置
	Input    Input     `yaml:"input"`              // 请求源配置
	Recorder *Recorder `yaml:"recorder,omitempty"` // 记录配置（可选）
}
