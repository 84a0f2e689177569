package tabs

// Subscribe returns a stream of tab events and a func that ends the
// subscription. Sends never block: a subscriber that falls behind loses
// events.
func (m *Manager) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	m.subsMu.Lock()
	key := m.nextSub
	m.nextSub++
	m.subs[key] = ch
	m.subsMu.Unlock()

	return ch, func() {
		m.subsMu.Lock()
		defer m.subsMu.Unlock()
		if c, ok := m.subs[key]; ok {
			delete(m.subs, key)
			close(c)
		}
	}
}

func (m *Manager) emit(ev Event) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()

	for _, ch := range m.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
