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
	"sort"

	"mosn.io/testkeeper/coordination"
)

// Watches tracks one-shot subscriptions: data watches fire on create, change
// and delete of the exact path, list watches fire on child events against the
// parent path. sessions is the reverse index so per-session teardown is
// proportional to the watches the session holds.
type Watches struct {
	data     map[string][]int64
	list     map[string][]int64
	sessions map[int64]map[string]struct{}
}

func newWatches() *Watches {
	return &Watches{
		data:     make(map[string][]int64),
		list:     make(map[string][]int64),
		sessions: make(map[int64]map[string]struct{}),
	}
}

// Install registers session as a watcher of path, in the list-watch map when
// list is set and in the data-watch map otherwise.
func (w *Watches) Install(session int64, path string, list bool) {
	if list {
		w.list[path] = append(w.list[path], session)
	} else {
		w.data[path] = append(w.data[path], session)
	}
	paths := w.sessions[session]
	if paths == nil {
		paths = make(map[string]struct{})
		w.sessions[session] = paths
	}
	paths[path] = struct{}{}
}

func watchNotification(path string, event coordination.EventType) *coordination.WatchResponse {
	resp := &coordination.WatchResponse{
		Path:  path,
		Type:  event,
		State: coordination.StateConnected,
	}
	resp.Xid = -1
	resp.Zxid = -1
	return resp
}

// unindex drops (session, path) from the reverse index once the session no
// longer watches path in either map.
func (w *Watches) unindex(session int64, path string) {
	if contains(w.data[path], session) || contains(w.list[path], session) {
		return
	}
	paths := w.sessions[session]
	delete(paths, path)
	if len(paths) == 0 {
		delete(w.sessions, session)
	}
}

func contains(sessions []int64, session int64) bool {
	for _, s := range sessions {
		if s == session {
			return true
		}
	}
	return false
}

// fireData pops the data watchers of path and notifies each of them. Used
// alone by Set, which must not raise child events.
func (w *Watches) fireData(path string, event coordination.EventType) []coordination.ResponseForSession {
	watchers, ok := w.data[path]
	if !ok {
		return nil
	}
	delete(w.data, path)
	results := make([]coordination.ResponseForSession, 0, len(watchers))
	for _, session := range watchers {
		results = append(results, coordination.ResponseForSession{
			SessionID: session,
			Response:  watchNotification(path, event),
		})
		w.unindex(session, path)
	}
	return results
}

// fire pops the data watchers of path, then the list watchers of its parent,
// which receive a CHILD event. Both entries are removed: watches are one-shot.
func (w *Watches) fire(path string, event coordination.EventType) []coordination.ResponseForSession {
	results := w.fireData(path, event)
	parent := parentPath(path)
	watchers, ok := w.list[parent]
	if !ok {
		return results
	}
	delete(w.list, parent)
	for _, session := range watchers {
		results = append(results, coordination.ResponseForSession{
			SessionID: session,
			Response:  watchNotification(parent, coordination.EventChild),
		})
		w.unindex(session, parent)
	}
	return results
}

// clearSession removes every watch held by session from both maps and drops
// the reverse index entry.
func (w *Watches) clearSession(session int64) {
	for path := range w.sessions[session] {
		if watchers := removeSession(w.data[path], session); len(watchers) == 0 {
			delete(w.data, path)
		} else {
			w.data[path] = watchers
		}
		if watchers := removeSession(w.list[path], session); len(watchers) == 0 {
			delete(w.list, path)
		} else {
			w.list[path] = watchers
		}
	}
	delete(w.sessions, session)
}

func removeSession(sessions []int64, session int64) []int64 {
	out := sessions[:0]
	for _, s := range sessions {
		if s != session {
			out = append(out, s)
		}
	}
	return out
}

// drainExpired pops every outstanding watch and notifies each watcher that its
// session expired. Paths are visited in sorted order for deterministic output.
func (w *Watches) drainExpired() []coordination.ResponseForSession {
	var results []coordination.ResponseForSession
	expire := func(watches map[string][]int64) {
		paths := make([]string, 0, len(watches))
		for path := range watches {
			paths = append(paths, path)
		}
		sort.Strings(paths)
		for _, path := range paths {
			for _, session := range watches[path] {
				resp := &coordination.WatchResponse{
					Type:  coordination.EventSession,
					State: coordination.StateExpiredSession,
				}
				resp.Xid = -1
				resp.Zxid = -1
				resp.Err = coordination.SessionExpired
				results = append(results, coordination.ResponseForSession{
					SessionID: session,
					Response:  resp,
				})
			}
		}
	}
	expire(w.data)
	expire(w.list)
	w.data = make(map[string][]int64)
	w.list = make(map[string][]int64)
	w.sessions = make(map[int64]map[string]struct{})
	return results
}

func (w *Watches) dataCount() int {
	n := 0
	for _, watchers := range w.data {
		n += len(watchers)
	}
	return n
}

func (w *Watches) listCount() int {
	n := 0
	for _, watchers := range w.list {
		n += len(watchers)
	}
	return n
}

func (w *Watches) sessionCount() int {
	return len(w.sessions)
}
