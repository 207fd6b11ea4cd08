package input

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/tsinghua-fib-lab/intersection-ctl-oss/entity"
	"github.com/tsinghua-fib-lab/intersection-ctl-oss/utils/config"
	"github.com/tsinghua-fib-lab/intersection-ctl-oss/utils/container"
)

const (
	// DefaultControlTopic 默认控制主题
	DefaultControlTopic = "intersection/control"
	// DefaultClientID 默认客户端ID
	DefaultClientID = "intersection-ctl"

	qosLevel = 1
)

// command MQTT控制指令的JSON结构
type command struct {
	Action string `json:"action"`           // pedestrian/emergency/emergency_clear/mode
	Street string `json:"street,omitempty"` // V|H（action=pedestrian时必填）
	Mode   string `json:"mode,omitempty"`   // NORMAL|NIGHT|MAINTENANCE|EMERGENCY（action=mode时必填）
}

// MQTTSource MQTT远程请求源
// 功能：订阅控制主题，将JSON指令转换为控制事件
// 说明：凭据从环境变量MQTT_USERNAME/MQTT_PASSWORD读取，未设置则匿名连接
type MQTTSource struct {
	client mqtt.Client
	topic  string

	mtx   sync.Mutex
	queue *container.Queue[entity.Event]
}

// NewMQTTSource 创建MQTT请求源
// 功能：连接broker并订阅控制主题
// 参数：cfg-MQTT配置，broker必填，topic与client_id有默认值
// 返回：就绪的请求源；连接或订阅失败时返回错误
func NewMQTTSource(cfg config.MQTTInput) (*MQTTSource, error) {
	topic := cfg.Topic
	if topic == "" {
		topic = DefaultControlTopic
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = DefaultClientID
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(clientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetTLSConfig(&tls.Config{
		MinVersion: tls.VersionTLS12,
	})
	if username := os.Getenv("MQTT_USERNAME"); username != "" {
		opts.SetUsername(username)
		opts.SetPassword(os.Getenv("MQTT_PASSWORD"))
	}
	opts.OnConnect = func(c mqtt.Client) {
		log.Infof("connected to MQTT broker %s", cfg.Broker)
	}
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		log.Errorf("lost connection to MQTT broker: %v", err)
	}

	s := &MQTTSource{
		topic: topic,
		queue: container.NewQueue[entity.Event](*queueCapacity),
	}
	s.client = mqtt.NewClient(opts)
	if token := s.client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect MQTT broker %s: %w", cfg.Broker, token.Error())
	}
	if token := s.client.Subscribe(topic, qosLevel, s.handleMessage); token.Wait() && token.Error() != nil {
		s.client.Disconnect(250)
		return nil, fmt.Errorf("subscribe %s: %w", topic, token.Error())
	}
	return s, nil
}

// handleMessage 处理单条控制指令
func (s *MQTTSource) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	var cmd command
	if err := json.Unmarshal(msg.Payload(), &cmd); err != nil {
		log.Errorf("bad command payload: %v", err)
		return
	}
	e := entity.Event{Time: time.Now(), Source: "mqtt"}
	switch cmd.Action {
	case "pedestrian":
		street, err := entity.ParseStreet(cmd.Street)
		if err != nil {
			log.Errorf("bad pedestrian command: %v", err)
			return
		}
		e.Kind = entity.EventPedestrianRequest
		e.Street = street
	case "emergency":
		e.Kind = entity.EventEmergencyAssert
	case "emergency_clear":
		e.Kind = entity.EventEmergencyClear
	case "mode":
		mode, err := entity.ParseMode(cmd.Mode)
		if err != nil {
			log.Errorf("bad mode command: %v", err)
			return
		}
		e.Kind = entity.EventModeChange
		e.Mode = mode
	default:
		log.Errorf("unknown action %q", cmd.Action)
		return
	}
	s.mtx.Lock()
	s.queue.Push(e)
	s.mtx.Unlock()
}

// Poll 非阻塞取出缓冲中的事件
func (s *MQTTSource) Poll() []entity.Event {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.queue.Drain()
}

// Close 断开broker连接
func (s *MQTTSource) Close() error {
	s.client.Disconnect(250)
	return nil
}
