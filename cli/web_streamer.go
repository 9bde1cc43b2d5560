/*
 * Copyright (C) 2026 Simone Pezzano
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as
 * published by the Free Software Foundation, either version 3 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <https://www.gnu.org/licenses/>.
 */

package main

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/theirish81/mcpdesk"
	"github.com/theirish81/mcpdesk/log"
)

// eventHub relays the events of a logger channel to every subscriber. Slow subscribers miss events rather than
// blocking the others.
type eventHub struct {
	subscribers *mcpdesk.SafeMap[string, chan log.Event]
}

func newEventHub() *eventHub {
	return &eventHub{subscribers: mcpdesk.NewSafeMap[string, chan log.Event]()}
}

// Run relays events until source is closed, then closes every subscriber channel.
func (h *eventHub) Run(source <-chan log.Event) {
	for event := range source {
		for _, ch := range h.subscribers.Iter() {
			select {
			case ch <- event:
			default:
			}
		}
	}
	for id, ch := range h.subscribers.Iter() {
		h.subscribers.Delete(id)
		close(ch)
	}
}

func (h *eventHub) Subscribe() (string, <-chan log.Event) {
	id := uuid.NewString()
	ch := make(chan log.Event, 50)
	h.subscribers.Store(id, ch)
	return id, ch
}

func (h *eventHub) Unsubscribe(id string) {
	h.subscribers.Delete(id)
}

type Streamer struct {
	c  echo.Context
	mx sync.Mutex
}

func NewStreamer(c echo.Context) *Streamer {
	return &Streamer{
		c:  c,
		mx: sync.Mutex{},
	}
}

// Stream writes events as server-sent events until the client goes away or the channel is closed.
func (s *Streamer) Stream(events <-chan log.Event) error {
	s.c.Response().Header().Set("Content-Type", "text/event-stream")
	s.c.Response().Header().Set("Cache-Control", "no-cache")
	s.c.Response().Header().Set("Connection", "keep-alive")
	s.c.Response().Header().Set("X-Accel-Buffering", "no")
	s.c.Response().WriteHeader(200)
	s.c.Response().Flush()

	for {
		select {
		case <-s.c.Request().Context().Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			data, err := toData(event)
			if err != nil {
				return err
			}
			if err := s.Write(data); err != nil {
				return err
			}
		}
	}
}

func (s *Streamer) Write(data []byte) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	_, err := s.c.Response().Write(data)
	if err == nil {
		s.c.Response().Flush()
	}
	return err
}

func toData(event log.Event) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("id: %s\nevent:%s\ndata:%s\n\n", event.ID, event.Type, string(data))), nil
}
