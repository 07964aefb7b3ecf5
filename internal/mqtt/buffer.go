package mqtt

// bufferedMsg is a serialized message waiting for the sender.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// outbox is a bounded FIFO between publishers and the sender goroutine.
// When full the oldest message is discarded. Callers synchronize.
type outbox struct {
	msgs    []bufferedMsg
	oldest  int
	n       int
	dropped int // discarded since the queue last emptied
}

func newOutbox(capacity int) *outbox {
	if capacity < 1 {
		capacity = 1
	}
	return &outbox{msgs: make([]bufferedMsg, capacity)}
}

// push enqueues msg. It reports true when this push was the first to
// discard a message since the outbox was last empty.
func (o *outbox) push(msg bufferedMsg) bool {
	size := len(o.msgs)
	if o.n < size {
		o.msgs[(o.oldest+o.n)%size] = msg
		o.n++
		return false
	}
	o.msgs[o.oldest] = msg
	o.oldest = (o.oldest + 1) % size
	o.dropped++
	return o.dropped == 1
}

// pop removes and returns the oldest message.
func (o *outbox) pop() (bufferedMsg, bool) {
	if o.n == 0 {
		return bufferedMsg{}, false
	}
	msg := o.msgs[o.oldest]
	o.msgs[o.oldest] = bufferedMsg{}
	o.oldest = (o.oldest + 1) % len(o.msgs)
	o.n--
	if o.n == 0 {
		o.oldest = 0
		o.dropped = 0
	}
	return msg, true
}

func (o *outbox) len() int { return o.n }

func (o *outbox) capacity() int { return len(o.msgs) }
