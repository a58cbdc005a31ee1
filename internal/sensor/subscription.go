package sensor

import "github.com/banshee-data/activity.report/internal/serialmux"

// subscription forwards parsed device lines from a mux subscriber channel to
// handle on a dedicated goroutine.
type subscription struct {
	mux  serialmux.SerialMuxInterface
	id   string
	stop chan struct{}
	done chan struct{}
}

func subscribe(mux serialmux.SerialMuxInterface, handle func(Line)) *subscription {
	id, lines := mux.Subscribe()
	s := &subscription{
		mux:  mux,
		id:   id,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go s.forward(lines, handle)
	return s
}

func (s *subscription) forward(lines chan string, handle func(Line)) {
	defer close(s.done)
	for {
		select {
		case <-s.stop:
			return
		case raw, ok := <-lines:
			if !ok {
				return
			}
			// A closed stop wins over a pending line.
			select {
			case <-s.stop:
				return
			default:
			}
			line, err := ParseLine(raw)
			if err != nil {
				logf("dropping line: %v", err)
				continue
			}
			handle(line)
		}
	}
}

// close stops forwarding and returns once handle can no longer be called.
func (s *subscription) close() {
	close(s.stop)
	s.mux.Unsubscribe(s.id)
	<-s.done
}

// sendAll writes commands in order and stops at the first failure.
func sendAll(mux serialmux.SerialMuxInterface, commands ...string) error {
	for _, c := range commands {
		if err := mux.SendCommand(c); err != nil {
			return err
		}
	}
	return nil
}
