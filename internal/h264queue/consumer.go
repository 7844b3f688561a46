package h264queue

// Consumer pops frames from a Queue in frame_id order, enforcing the
// decoder-error policy: once an error is reported, every non-IDR frame is
// discarded until the next IDR, at which point decoding resumes (and the
// caller reconfigures the decoder if coded dimensions changed).
type Consumer struct {
	queue     *Queue
	errored   bool
	lastFrame *Frame
}

// NewConsumer wraps a Queue with decoder-error bookkeeping.
func NewConsumer(queue *Queue) *Consumer {
	return &Consumer{queue: queue}
}

// ReportDecodeError flags the consumer so that Next discards non-IDR
// frames until the next IDR arrives.
func (c *Consumer) ReportDecodeError() {
	c.errored = true
}

// Next pops frames until it finds one this consumer will actually deliver:
// any frame while healthy, or the next IDR while in the post-error
// discard state. Returns ok=false if the queue is drained without
// producing a deliverable frame.
func (c *Consumer) Next() (frame Frame, ok bool) {
	for {
		f, err := c.queue.Pop()
		if err != nil {
			return Frame{}, false
		}
		if c.errored && f.Type != FrameTypeIDR {
			continue
		}
		c.errored = false
		c.lastFrame = &f
		return f, true
	}
}

// Errored reports whether the consumer is currently discarding non-IDR
// frames after a decode error.
func (c *Consumer) Errored() bool {
	return c.errored
}
