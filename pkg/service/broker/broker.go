// MiniDisplay Core
// Copyright (c) 2026 The MiniDisplay Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of MiniDisplay Core.
//
// MiniDisplay Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// MiniDisplay Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with MiniDisplay Core.  If not, see <http://www.gnu.org/licenses/>.

// Package broker fans coordinator notifications out to every consumer
// without letting a slow one hold up the rest.
package broker

import (
	"context"

	"github.com/minidisplay/minidisplay-core/pkg/api/models"
	"github.com/minidisplay/minidisplay-core/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
)

// Broker reads one source channel and copies each notification to all
// subscribers with non-blocking sends.
type Broker struct {
	ctx         context.Context
	source      <-chan models.Notification
	subscribers map[int]chan models.Notification
	done        chan struct{}
	mu          syncutil.RWMutex
	nextID      int
}

func NewBroker(ctx context.Context, source <-chan models.Notification) *Broker {
	return &Broker{
		ctx:         ctx,
		source:      source,
		subscribers: make(map[int]chan models.Notification),
		done:        make(chan struct{}),
	}
}

// Start runs the broadcast loop until the source closes or ctx is done,
// then closes every subscriber channel.
func (b *Broker) Start() {
	go func() {
		defer close(b.done)
		for {
			select {
			case notif, ok := <-b.source:
				if !ok {
					log.Debug().Msg("broker: source channel closed")
					b.closeAllSubscribers()
					return
				}
				b.broadcast(notif)
			case <-b.ctx.Done():
				log.Debug().Msg("broker: context cancelled, shutting down")
				b.closeAllSubscribers()
				return
			}
		}
	}()
}

// Done is closed once the broadcast loop has exited.
func (b *Broker) Done() <-chan struct{} {
	return b.done
}

func (b *Broker) broadcast(notif models.Notification) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subscribers {
		select {
		case ch <- notif:
		default:
			log.Warn().
				Int("subscriber_id", id).
				Str("method", notif.Method).
				Msg("subscriber channel full, dropping notification")
		}
	}
}

// Subscribe registers a consumer. bufferSize notifications can queue before
// further ones are dropped for this subscriber.
func (b *Broker) Subscribe(bufferSize int) (notifChan <-chan models.Notification, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id = b.nextID
	b.nextID++
	ch := make(chan models.Notification, bufferSize)
	b.subscribers[id] = ch

	log.Debug().Int("subscriber_id", id).Int("buffer_size", bufferSize).Msg("new subscriber registered")
	return ch, id
}

// Unsubscribe removes and closes a subscription. Unknown ids are ignored.
func (b *Broker) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subscribers[id]; ok {
		delete(b.subscribers, id)
		close(ch)
		log.Debug().Int("subscriber_id", id).Msg("subscriber unsubscribed")
	}
}

func (b *Broker) closeAllSubscribers() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subscribers {
		close(ch)
		log.Debug().Int("subscriber_id", id).Msg("closed subscriber channel on shutdown")
	}
	b.subscribers = make(map[int]chan models.Notification)
}
