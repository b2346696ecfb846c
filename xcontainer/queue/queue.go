package queue

const initQueueLen = 16

// Queue is a growable ring buffer. It is not safe for concurrent use.
type Queue[T any] struct {
	buf     []T
	head    int
	tail    int
	count   int
	initLen int
}

func New[T any]() *Queue[T] {
	return NewWithSize[T](initQueueLen)
}

func NewWithSize[T any](size int) *Queue[T] {
	if size < 1 {
		size = 1
	}
	return &Queue[T]{
		buf:     make([]T, size),
		initLen: size,
	}
}

func (q *Queue[T]) resize() {
	n := q.count << 1
	if n < q.initLen {
		n = q.initLen
	}
	newBuf := make([]T, n)
	if q.count > 0 {
		if q.tail > q.head {
			copy(newBuf, q.buf[q.head:q.tail])
		} else {
			c := copy(newBuf, q.buf[q.head:])
			copy(newBuf[c:], q.buf[:q.tail])
		}
	}
	q.head = 0
	q.tail = q.count % n
	q.buf = newBuf
}

func (q *Queue[T]) Push(ele T) {
	if q.count == len(q.buf) {
		q.resize()
	}
	q.buf[q.tail] = ele
	q.tail = (q.tail + 1) % len(q.buf)
	q.count++
}

// Pop removes the head element. ok is false when the queue is empty.
func (q *Queue[T]) Pop() (ret T, ok bool) {
	if q.count <= 0 {
		return ret, false
	}
	var zero T
	ret = q.buf[q.head]
	q.buf[q.head] = zero
	q.head = (q.head + 1) % len(q.buf)
	q.count--
	if len(q.buf) > q.initLen && (q.count<<2) == len(q.buf) {
		q.resize()
	}
	return ret, true
}

// Get (from q.head, 0 as first, -1 as last)
func (q *Queue[T]) Get(i int) (ret T, ok bool) {
	if i < 0 {
		i += q.count
	}
	if i < 0 || i >= q.count {
		return ret, false
	}
	return q.buf[(q.head+i)%len(q.buf)], true
}

// Peek return the ele at the head of the queue
func (q *Queue[T]) Peek() (ret T, ok bool) {
	if q.count <= 0 {
		return ret, false
	}
	return q.buf[q.head], true
}

func (q *Queue[T]) Length() int {
	return q.count
}

// Clear removes every element, handing each to fn in FIFO order.
func (q *Queue[T]) Clear(fn func(T)) {
	for q.count > 0 {
		ele, _ := q.Pop()
		if fn != nil {
			fn(ele)
		}
	}
}
