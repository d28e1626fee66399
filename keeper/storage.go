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

package keeper

import (
	"strings"
	"sync"
	"time"

	perrors "github.com/pkg/errors"
	uatomic "go.uber.org/atomic"

	"mosn.io/pkg/log"

	"mosn.io/testkeeper/coordination"
)

// Storage is the single-writer coordination state machine. ProcessRequest and
// Finalize serialize on the storage lock; processors receive the state by
// reference for the duration of one call.
type Storage struct {
	mu         sync.Mutex
	tree       *Tree
	ephemerals Ephemerals
	watches    *Watches
	zxid       uatomic.Int64
	finalized  uatomic.Bool
}

func NewStorage() *Storage {
	return &Storage{
		tree:       NewTree(),
		ephemerals: make(Ephemerals),
		watches:    newWatches(),
	}
}

// GetZXID returns the zxid the next committed request will be stamped with.
func (s *Storage) GetZXID() int64 {
	return s.zxid.Load()
}

func (s *Storage) nextZXID() int64 {
	return s.zxid.Inc() - 1
}

func nowMillis() int64 {
	return time.Now().UnixNano() / int64(time.Millisecond)
}

// validatePath rejects paths the protocol never produces. The parent-path
// arithmetic assumes absolute paths, so the facade checks before dispatch.
func validatePath(path string) error {
	if path == "" {
		return perrors.New("logical error: request path cannot be empty")
	}
	if !strings.HasPrefix(path, "/") {
		return perrors.Errorf("logical error: request path %q is not absolute", path)
	}
	return nil
}

func hasPath(op coordination.OpNum) bool {
	switch op {
	case coordination.OpHeartbeat, coordination.OpMulti, coordination.OpClose:
		return false
	}
	return true
}

// ProcessRequest executes one request for a session and returns the
// requester's response plus any watch notifications it produced, notifications
// first. The returned error plane is internal only; protocol errors ride
// inside the responses.
func (s *Storage) ProcessRequest(req coordination.Request, sessionID int64) ([]coordination.ResponseForSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if req.GetOpNum() == coordination.OpClose {
		return s.closeSession(req, sessionID), nil
	}

	if hasPath(req.GetOpNum()) {
		if err := validatePath(req.GetPath()); err != nil {
			return nil, err
		}
	}

	proc, err := processorFor(req)
	if err != nil {
		return nil, err
	}

	ctx := &txnContext{
		tree:       s.tree,
		ephemerals: s.ephemerals,
		zxid:       s.zxid.Load(),
		sessionID:  sessionID,
		now:        nowMillis(),
	}
	resp, _, err := proc.Process(ctx)
	if err != nil {
		return nil, err
	}

	var results []coordination.ResponseForSession
	if req.HasWatch() {
		results = append(results, s.installWatch(req, resp, sessionID)...)
	}
	fire := resp.Header().Err == coordination.OK
	if multi, ok := resp.(*coordination.MultiResponse); ok {
		// a rolled-back multi keeps the outer ZOK; its sub errors mark the failure
		for _, sub := range multi.Responses {
			if sub.Header().Err != coordination.OK {
				fire = false
			}
		}
	}
	if fire {
		results = append(results, proc.ProcessWatches(s.watches)...)
	}

	hdr := resp.Header()
	hdr.Xid = req.GetXid()
	hdr.Zxid = s.nextZXID()

	return append(results, coordination.ResponseForSession{SessionID: sessionID, Response: resp}), nil
}

// installWatch applies the post-request install rules. List-type reads install
// child watches; other reads install data watches on success; Exists installs
// a data watch even on NONODE so a later create still fires. Any other error
// yields a synchronous NOTWATCHING notification instead of an installation.
func (s *Storage) installWatch(req coordination.Request, resp coordination.Response, sessionID int64) []coordination.ResponseForSession {
	op := req.GetOpNum()
	switch code := resp.Header().Err; {
	case code == coordination.OK:
		isList := op == coordination.OpList || op == coordination.OpSimpleList
		s.watches.Install(sessionID, req.GetPath(), isList)
	case code == coordination.NoNode && op == coordination.OpExists:
		s.watches.Install(sessionID, req.GetPath(), false)
	default:
		notWatching := &coordination.WatchResponse{
			Path: req.GetPath(),
			Type: coordination.EventNotWatching,
		}
		notWatching.Xid = -1
		notWatching.Zxid = -1
		notWatching.Err = code
		return []coordination.ResponseForSession{{SessionID: sessionID, Response: notWatching}}
	}
	return nil
}

// closeSession tears a session down: its ephemeral nodes leave the tree with
// the parents' child bookkeeping updated, DELETED watches fire for each, and
// the session's own watches are dropped without firing.
func (s *Storage) closeSession(req coordination.Request, sessionID int64) []coordination.ResponseForSession {
	var results []coordination.ResponseForSession
	for _, path := range s.ephemerals.Take(sessionID) {
		if s.tree.Get(path) != nil {
			s.tree.Delete(path)
			parent := s.tree.Get(parentPath(path))
			parent.Stat.NumChildren--
			parent.Stat.Cversion++
		}
		results = append(results, s.watches.fire(path, coordination.EventDeleted)...)
	}
	s.watches.clearSession(sessionID)

	resp := &coordination.CloseResponse{}
	resp.Xid = req.GetXid()
	resp.Zxid = s.nextZXID()
	log.DefaultLogger.Debugf("[keeper] session %d closed, zxid %d", sessionID, resp.Zxid)
	return append(results, coordination.ResponseForSession{SessionID: sessionID, Response: resp})
}

// Finalize shuts the storage down once. Every outstanding watcher receives a
// session-expired notification, the watch state is cleared, and each request
// still in flight at the transport is answered with SESSIONEXPIRED in its
// natural response kind.
func (s *Storage) Finalize(expired []coordination.RequestForSession) ([]coordination.ResponseForSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.finalized.CAS(false, true) {
		return nil, perrors.New("keeper storage already finalized")
	}

	results := s.watches.drainExpired()
	for _, pair := range expired {
		resp := pair.Request.MakeResponse()
		hdr := resp.Header()
		hdr.Err = coordination.SessionExpired
		hdr.Xid = pair.Request.GetXid()
		hdr.Zxid = s.zxid.Load()
		results = append(results, coordination.ResponseForSession{SessionID: pair.SessionID, Response: resp})
	}
	log.DefaultLogger.Infof("[keeper] storage finalized, %d responses flushed", len(results))
	return results, nil
}

// Stats is a point-in-time summary of the storage, served by the admin
// endpoint.
type Stats struct {
	Zxid             int64 `json:"zxid"`
	Nodes            int   `json:"nodes"`
	Ephemerals       int   `json:"ephemerals"`
	DataWatches      int   `json:"data_watches"`
	ListWatches      int   `json:"list_watches"`
	WatchingSessions int   `json:"watching_sessions"`
	Finalized        bool  `json:"finalized"`
}

func (s *Storage) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		Zxid:             s.zxid.Load(),
		Nodes:            s.tree.Len(),
		Ephemerals:       s.ephemerals.Count(),
		DataWatches:      s.watches.dataCount(),
		ListWatches:      s.watches.listCount(),
		WatchingSessions: s.watches.sessionCount(),
		Finalized:        s.finalized.Load(),
	}
}
