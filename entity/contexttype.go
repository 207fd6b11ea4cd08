package entity

import (
	"github.com/tsinghua-fib-lab/intersection-ctl-oss/clock"
	"github.com/tsinghua-fib-lab/intersection-ctl-oss/utils/config"
)

type ITaskContext interface {
	Clock() *clock.Clock
	RuntimeConfig() *config.RuntimeConfig
}
