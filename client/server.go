/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package client

import (
	"sync"

	"github.com/dubbogo/go-zookeeper/zk"
	perrors "github.com/pkg/errors"

	"mosn.io/pkg/log"

	"mosn.io/testkeeper/config"
	"mosn.io/testkeeper/coordination"
	"mosn.io/testkeeper/keeper"
)

// Options configures an embedded Server.
type Options struct {
	name        string
	eventBuffer int
	cfg         *config.Config
}

// Option will define a function of handling Options
type Option func(*Options)

// WithName sets the server name used in log lines.
func WithName(name string) Option {
	return func(opt *Options) {
		opt.name = name
	}
}

// WithEventBuffer sets the per-session watch event buffer size.
func WithEventBuffer(n int) Option {
	return func(opt *Options) {
		opt.eventBuffer = n
	}
}

// WithConfig seeds the server from a harness config.
func WithConfig(cfg *config.Config) Option {
	return func(opt *Options) {
		opt.cfg = cfg
	}
}

// Server hosts one embedded keeper storage and hands out sessions. It is the
// in-process stand-in for a zookeeper ensemble endpoint.
type Server struct {
	mu          sync.Mutex
	name        string
	storage     *keeper.Storage
	sessions    map[int64]*Conn
	nextSession int64
	eventBuffer int
	finalized   bool
}

// NewServer builds a server, applying config seeds when provided.
func NewServer(opts ...Option) (*Server, error) {
	options := &Options{
		name:        config.DefaultName,
		eventBuffer: config.DefaultEventBuffer,
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.cfg != nil {
		if options.cfg.Name != "" {
			options.name = options.cfg.Name
		}
		if options.cfg.EventBuffer > 0 {
			options.eventBuffer = options.cfg.EventBuffer
		}
	}

	s := &Server{
		name:        options.name,
		storage:     keeper.NewStorage(),
		sessions:    make(map[int64]*Conn),
		eventBuffer: options.eventBuffer,
	}
	if options.cfg != nil {
		if err := options.cfg.Apply(s.storage); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Storage exposes the underlying keeper storage, e.g. for the admin endpoint.
func (s *Server) Storage() *keeper.Storage {
	return s.storage
}

// Connect allocates the next session and returns its connection.
func (s *Server) Connect() (*Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finalized {
		return nil, zk.ErrClosing
	}
	s.nextSession++
	c := &Conn{
		server:    s,
		sessionID: s.nextSession,
		events:    make(chan zk.Event, s.eventBuffer),
		watchers:  make(map[string][]chan zk.Event),
	}
	s.sessions[c.sessionID] = c
	log.DefaultLogger.Infof("[client] server %s opened session %d", s.name, c.sessionID)
	return c, nil
}

// process runs one request for a connection under the server lock, routes
// watch notifications to their sessions and returns the requester's own
// response.
func (s *Server) process(c *Conn, req coordination.Request) (coordination.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	results, err := s.storage.ProcessRequest(req, c.sessionID)
	if err != nil {
		return nil, err
	}
	var own coordination.Response
	for _, result := range results {
		if watch, ok := result.Response.(*coordination.WatchResponse); ok {
			s.route(result.SessionID, watch)
			continue
		}
		if result.SessionID == c.sessionID {
			own = result.Response
		}
	}
	if own == nil {
		return nil, perrors.Errorf("no response for session %d", c.sessionID)
	}
	return own, nil
}

func (s *Server) route(sessionID int64, w *coordination.WatchResponse) {
	target := s.sessions[sessionID]
	if target == nil {
		return
	}
	target.deliver(watchToZkEvent(w))
}

func (s *Server) dropSession(sessionID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

// Finalize expires the storage once. Outstanding watchers receive the
// session-expired event and every mailbox is closed; later Connect calls fail.
func (s *Server) Finalize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finalized {
		return perrors.Errorf("server %s already finalized", s.name)
	}
	s.finalized = true

	results, err := s.storage.Finalize(nil)
	if err != nil {
		return err
	}
	for _, result := range results {
		if watch, ok := result.Response.(*coordination.WatchResponse); ok {
			s.route(result.SessionID, watch)
		}
	}
	for _, c := range s.sessions {
		c.shutdown()
	}
	s.sessions = make(map[int64]*Conn)
	log.DefaultLogger.Infof("[client] server %s finalized", s.name)
	return nil
}
