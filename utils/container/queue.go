package container

// Queue 有界FIFO队列
// 功能：请求源的事件缓冲，容量满时丢弃最旧的元素
// 说明：非并发安全，调用方自行加锁
type Queue[T any] struct {
	data     []T
	capacity int
	dropped  int
}

// NewQueue 创建有界FIFO队列
// 参数：capacity-队列容量，必须为正
func NewQueue[T any](capacity int) *Queue[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue[T]{
		data:     make([]T, 0, capacity),
		capacity: capacity,
	}
}

// Len 获取当前队列长度
func (q *Queue[T]) Len() int {
	return len(q.data)
}

// Dropped 获取因容量不足被丢弃的元素总数
func (q *Queue[T]) Dropped() int {
	return q.dropped
}

// Push 向队尾加入元素
// 说明：队列已满时丢弃队头最旧的元素，保证新事件不被丢失
func (q *Queue[T]) Push(value T) {
	if len(q.data) >= q.capacity {
		copy(q.data, q.data[1:])
		q.data = q.data[:len(q.data)-1]
		q.dropped++
	}
	q.data = append(q.data, value)
}

// Pop 从队头取出元素
// 返回：队头元素与是否成功，队列为空时返回零值与false
func (q *Queue[T]) Pop() (T, bool) {
	var zero T
	if len(q.data) == 0 {
		return zero, false
	}
	v := q.data[0]
	copy(q.data, q.data[1:])
	q.data[len(q.data)-1] = zero // 避免内存泄漏
	q.data = q.data[:len(q.data)-1]
	return v, true
}

// Drain 取出全部元素并清空队列
func (q *Queue[T]) Drain() []T {
	if len(q.data) == 0 {
		return nil
	}
	out := make([]T, len(q.data))
	copy(out, q.data)
	q.data = q.data[:0]
	return out
}
