package entity

// 依赖倒置，表达各模块之间的接口需求

// 给外部读取信控结果的接口
type ISignalControllerGetter interface {
	Signals() SignalAssignment // 当前信号分配（snapshot）
	State() State              // 当前状态
	Mode() Mode                // 当前模式
	RemainingTime() float64    // 当前状态剩余时长（非NORMAL模式下为INF）
	Ok() bool                  // 输出链路健康状态
}

// controller/controller.go的依赖倒置
type ISignalController interface {
	ISignalControllerGetter
	Prepare()                // 准备阶段，写snapshot并重算信号分配
	Update(dt float64) error // 更新阶段，推进定时器，dt<0报错且不改变状态

	RequestPedestrian(street Street) error // 登记行人过街请求（幂等）
	SetMode(mode Mode) error               // 切换运行模式
	SetOk(ok bool)                         // 设置输出链路健康状态（false时锁定安全全红）
}

// output包Output Sink的依赖倒置
// 说明：Set失败必须返回error，不允许静默失败
type IOutputSink interface {
	Set(channel Channel, on bool) error // 设置单个通道
	Close() error                       // 释放硬件资源
}

// output/manager.go的依赖倒置
type IOutputManager interface {
	// 差量下发信号分配，返回实际下发的通道变更
	Apply(assignment SignalAssignment) ([]SignalChange, error)
	// 安全停机序列：全红->保持->全灭->释放
	Shutdown(clearance float64) error
}

// input包请求源的依赖倒置
type IRequestSource interface {
	Poll() []Event // 非阻塞取出已到达的事件
	Close() error  // 停止采集
}

// recorder/recorder.go的依赖倒置
type IRecorder interface {
	RecordTransition(t float64, state State, mode Mode) // 记录状态/模式变化
	RecordChanges(t float64, changes []SignalChange)    // 记录通道变化
	Close() error                                       // 冲刷并关闭
}
