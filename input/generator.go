package input

import (
	"time"

	"github.com/tsinghua-fib-lab/intersection-ctl-oss/entity"
	"github.com/tsinghua-fib-lab/intersection-ctl-oss/utils/config"
	"github.com/tsinghua-fib-lab/intersection-ctl-oss/utils/randengine"
)

// GeneratorSource 模拟请求生成器
// 功能：每次轮询以配置概率产生一条随机街道的行人过街请求，用于无硬件演示
// 说明：事件在Poll调用时即时生成，无缓冲
type GeneratorSource struct {
	generator *randengine.Engine
	pRequest  float64
}

// NewGeneratorSource 创建模拟请求生成器
// 参数：cfg-生成器配置，包含种子与每轮询请求概率
func NewGeneratorSource(cfg config.GeneratorInput) *GeneratorSource {
	log.Infof("request generator enabled (seed=%d, p=%.3f)", cfg.Seed, cfg.PRequest)
	return &GeneratorSource{
		generator: randengine.New(cfg.Seed),
		pRequest:  cfg.PRequest,
	}
}

// Poll 按概率生成行人请求
func (s *GeneratorSource) Poll() []entity.Event {
	if !s.generator.PTrueSafe(s.pRequest) {
		return nil
	}
	street := entity.StreetV
	if s.generator.PTrueSafe(0.5) {
		street = entity.StreetH
	}
	return []entity.Event{{
		Kind:   entity.EventPedestrianRequest,
		Street: street,
		Time:   time.Now(),
		Source: "generator",
	}}
}

// Close 停止生成
func (s *GeneratorSource) Close() error {
	return nil
}
