package web

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Texts are the four text lines of the tracker screen.
type Texts struct {
	Network  string `json:"network"`
	Location string `json:"location"`
	Alert    string `json:"alert"`
	Stats    string `json:"stats"`
}

type subscriber struct {
	Send chan []byte
}

// Board keeps the latest text of every line and pushes each change to its
// websocket subscribers.
type Board struct {
	mu          sync.RWMutex
	texts       Texts
	subscribers map[*subscriber]struct{}
}

func NewBoard() *Board {
	return &Board{subscribers: map[*subscriber]struct{}{}}
}

func (b *Board) Texts() Texts {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.texts
}

func (b *Board) SetNetworkStatus(text string) {
	b.update(func(t *Texts) { t.Network = text })
}

func (b *Board) SetLocationStatus(text string) {
	b.update(func(t *Texts) { t.Location = text })
}

func (b *Board) SetAlert(text string) {
	b.update(func(t *Texts) { t.Alert = text })
}

func (b *Board) SetStats(text string) {
	b.update(func(t *Texts) { t.Stats = text })
}

func (b *Board) update(apply func(*Texts)) {
	b.mu.Lock()
	apply(&b.texts)
	texts := b.texts
	b.mu.Unlock()

	payload, err := json.Marshal(texts)
	if err != nil {
		slog.Error("encode board", "error", err)
		return
	}
	b.broadcast(payload)
}

// subscribe registers a subscriber primed with the current texts.
func (b *Board) subscribe() *subscriber {
	sub := &subscriber{Send: make(chan []byte, 64)}
	b.mu.Lock()
	defer b.mu.Unlock()
	if payload, err := json.Marshal(b.texts); err == nil {
		sub.Send <- payload
	}
	b.subscribers[sub] = struct{}{}
	return sub
}

func (b *Board) unsubscribe(sub *subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subscribers[sub]; ok {
		delete(b.subscribers, sub)
		close(sub.Send)
	}
}

func (b *Board) broadcast(payload []byte) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subscribers {
		select {
		case sub.Send <- payload:
		default:
		}
	}
}
