package input

import (
	"bufio"
	"os"
	"sync"
	"time"

	"github.com/tsinghua-fib-lab/intersection-ctl-oss/entity"
	"github.com/tsinghua-fib-lab/intersection-ctl-oss/utils/container"
)

// KeyboardSource 键盘请求源
// 功能：从标准输入按行读取按键指令，转换为控制事件
// 按键表：v/h-行人过街请求，e-紧急进入，E-紧急解除，
// n-夜间模式，m-维护模式，0-正常模式
type KeyboardSource struct {
	mtx    sync.Mutex
	queue  *container.Queue[entity.Event]
	closed bool
}

// NewKeyboardSource 创建键盘请求源
// 功能：启动读取协程，按行解析标准输入
// 说明：读取协程阻塞在标准输入上，Close后下一行输入到达时退出
func NewKeyboardSource() *KeyboardSource {
	s := &KeyboardSource{
		queue: container.NewQueue[entity.Event](*queueCapacity),
	}
	go s.readLoop()
	log.Infof("keyboard source ready (v/h=pedestrian, e/E=emergency, n/m/0=mode)")
	return s
}

// readLoop 读取协程
func (s *KeyboardSource) readLoop() {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		s.mtx.Lock()
		if s.closed {
			s.mtx.Unlock()
			return
		}
		for _, key := range line {
			if e, ok := keyToEvent(key); ok {
				s.queue.Push(e)
			} else {
				log.Warnf("unknown key %q ignored", key)
			}
		}
		s.mtx.Unlock()
	}
	if err := scanner.Err(); err != nil {
		log.Errorf("stdin read error: %v", err)
	}
}

// keyToEvent 将单个按键映射为控制事件
func keyToEvent(key rune) (entity.Event, bool) {
	e := entity.Event{Time: time.Now(), Source: "keyboard"}
	switch key {
	case 'v':
		e.Kind = entity.EventPedestrianRequest
		e.Street = entity.StreetV
	case 'h':
		e.Kind = entity.EventPedestrianRequest
		e.Street = entity.StreetH
	case 'e':
		e.Kind = entity.EventEmergencyAssert
	case 'E':
		e.Kind = entity.EventEmergencyClear
	case 'n':
		e.Kind = entity.EventModeChange
		e.Mode = entity.ModeNight
	case 'm':
		e.Kind = entity.EventModeChange
		e.Mode = entity.ModeMaintenance
	case '0':
		e.Kind = entity.EventModeChange
		e.Mode = entity.ModeNormal
	default:
		return entity.Event{}, false
	}
	return e, true
}

// Poll 非阻塞取出缓冲中的事件
func (s *KeyboardSource) Poll() []entity.Event {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.queue.Drain()
}

// Close 停止采集
func (s *KeyboardSource) Close() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.closed = true
	return nil
}
