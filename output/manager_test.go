package output_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/intersection-ctl-oss/entity"
	"github.com/tsinghua-fib-lab/intersection-ctl-oss/output"
)

// fakeSink 测试用输出汇，记录全部写入
type fakeSink struct {
	writes []entity.SignalChange
	failAt entity.Channel // 写入该通道时报错
	fail   bool
	closed bool
}

func (s *fakeSink) Set(c entity.Channel, on bool) error {
	if s.fail && c == s.failAt {
		return errors.New("wire fault")
	}
	s.writes = append(s.writes, entity.SignalChange{Channel: c, On: on})
	return nil
}

func (s *fakeSink) Close() error {
	s.closed = true
	return nil
}

func TestApplyFullPushThenDiff(t *testing.T) {
	sink := &fakeSink{}
	m := output.NewManager(sink)

	var a entity.SignalAssignment
	a.Set(entity.ChannelVGreen, true)
	a.Set(entity.ChannelHRed, true)

	// 首次下发推送全量分配
	changes, err := m.Apply(a)
	require.NoError(t, err)
	assert.Len(t, changes, int(entity.NumChannels))
	assert.Len(t, sink.writes, int(entity.NumChannels))

	// 无变化时不产生写入
	sink.writes = nil
	changes, err = m.Apply(a)
	require.NoError(t, err)
	assert.Empty(t, changes)
	assert.Empty(t, sink.writes)

	// 单通道变化只写差量
	a.Set(entity.ChannelVGreen, false)
	a.Set(entity.ChannelVYellow, true)
	changes, err = m.Apply(a)
	require.NoError(t, err)
	assert.Equal(t, []entity.SignalChange{
		{Channel: entity.ChannelVYellow, On: true},
		{Channel: entity.ChannelVGreen, On: false},
	}, changes)
}

func TestApplyFailureForcesFullPush(t *testing.T) {
	sink := &fakeSink{}
	m := output.NewManager(sink)

	var a entity.SignalAssignment
	a.Set(entity.ChannelVGreen, true)
	_, err := m.Apply(a)
	require.NoError(t, err)

	// 写入失败必须上抛，不做静默重试
	sink.fail = true
	sink.failAt = entity.ChannelVYellow
	a.Set(entity.ChannelVYellow, true)
	_, err = m.Apply(a)
	assert.Error(t, err)

	// 失败后下一次Apply重新推送全量，消除实际状态与期望的偏差
	sink.fail = false
	sink.writes = nil
	changes, err := m.Apply(a)
	require.NoError(t, err)
	assert.Len(t, changes, int(entity.NumChannels))
}

func TestShutdownSequence(t *testing.T) {
	sink := &fakeSink{}
	m := output.NewManager(sink)

	var a entity.SignalAssignment
	a.Set(entity.ChannelVGreen, true)
	a.Set(entity.ChannelVPedStop, true)
	a.Set(entity.ChannelHRed, true)
	a.Set(entity.ChannelHPedStop, true)
	_, err := m.Apply(a)
	require.NoError(t, err)

	sink.writes = nil
	require.NoError(t, m.Shutdown(0))
	assert.True(t, sink.closed)

	// 序列：先切到双向全红+行人STOP，再全灭；写入是差量，从停机前的状态回放
	lit := a
	sawAllRed := false
	for _, w := range sink.writes {
		lit.Set(w.Channel, w.On)
		if lit.Get(entity.ChannelVRed) && lit.Get(entity.ChannelHRed) &&
			lit.Get(entity.ChannelVPedStop) && lit.Get(entity.ChannelHPedStop) &&
			!lit.Get(entity.ChannelVGreen) {
			sawAllRed = true
		}
	}
	assert.True(t, sawAllRed, "all-red hold must precede lights-off: %v", sink.writes)
	assert.Equal(t, entity.SignalAssignment{}, lit, "all channels off at the end")
}

func TestShutdownReleasesSinkOnFailure(t *testing.T) {
	sink := &fakeSink{fail: true, failAt: entity.ChannelVRed}
	m := output.NewManager(sink)

	// 首步失败仍继续执行后续步骤并释放资源
	err := m.Shutdown(0)
	assert.Error(t, err)
	assert.True(t, sink.closed)
}
