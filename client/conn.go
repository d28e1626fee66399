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
	uatomic "go.uber.org/atomic"

	"mosn.io/pkg/log"

	"mosn.io/testkeeper/coordination"
)

// Conn is one session against the embedded server, speaking the go-zookeeper
// dialect: flags, sentinel errors and zk.Event notifications.
type Conn struct {
	server    *Server
	sessionID int64
	xid       uatomic.Int32
	closed    uatomic.Bool

	// events is the session mailbox; watch notifications land here as well as
	// on the per-watch channels below. When the mailbox buffer is full the
	// notification is dropped from the mailbox (the per-watch channels still
	// receive it).
	events chan zk.Event

	watchMu  sync.Mutex
	watchers map[string][]chan zk.Event
}

// SessionID returns the session id the server assigned to this connection.
func (c *Conn) SessionID() int64 {
	return c.sessionID
}

// Events returns the session mailbox carrying the notifications delivered to
// this session; notifications arriving while its buffer is full are dropped.
func (c *Conn) Events() <-chan zk.Event {
	return c.events
}

func (c *Conn) nextXid() int32 {
	return c.xid.Inc()
}

func (c *Conn) request(req coordination.Request) (coordination.Response, error) {
	if c.closed.Load() {
		return nil, zk.ErrConnectionClosed
	}
	return c.server.process(c, req)
}

// addWatcher registers a one-shot channel for path; the next event on the
// path is sent there and the channel is dropped.
func (c *Conn) addWatcher(path string) <-chan zk.Event {
	ch := make(chan zk.Event, 1)
	c.watchMu.Lock()
	c.watchers[path] = append(c.watchers[path], ch)
	c.watchMu.Unlock()
	return ch
}

// deliver routes an event to the session mailbox and to the one-shot watchers
// of its path. Session events are broadcast to every registered watcher.
func (c *Conn) deliver(ev zk.Event) {
	c.watchMu.Lock()
	if ev.Type == zk.EventSession {
		for _, watchers := range c.watchers {
			for _, ch := range watchers {
				ch <- ev
			}
		}
		c.watchers = make(map[string][]chan zk.Event)
	} else if watchers, ok := c.watchers[ev.Path]; ok {
		delete(c.watchers, ev.Path)
		for _, ch := range watchers {
			ch <- ev
		}
	}
	c.watchMu.Unlock()

	select {
	case c.events <- ev:
	default:
		log.DefaultLogger.Warnf("[client] session %d event buffer full, dropped %s on %s",
			c.sessionID, ev.Type, ev.Path)
	}
}

// shutdown is invoked by the server on finalize.
func (c *Conn) shutdown() {
	if c.closed.CAS(false, true) {
		close(c.events)
	}
}

// Create creates a node. Flags accepts zk.FlagEphemeral and zk.FlagSequence;
// the returned path carries the sequence suffix when one was assigned.
func (c *Conn) Create(path string, data []byte, flags int32) (string, error) {
	req := &coordination.CreateRequest{
		Path:       path,
		Data:       data,
		Ephemeral:  flags&zk.FlagEphemeral != 0,
		Sequential: flags&zk.FlagSequence != 0,
	}
	req.Xid = c.nextXid()
	resp, err := c.request(req)
	if err != nil {
		return "", err
	}
	create := resp.(*coordination.CreateResponse)
	if create.Err != coordination.OK {
		return "", errToZk(create.Err)
	}
	return create.PathCreated, nil
}

// Get returns the data and stat of a node.
func (c *Conn) Get(path string) ([]byte, *zk.Stat, error) {
	return c.get(path, false)
}

// GetW is Get plus a one-shot data watch on the path.
func (c *Conn) GetW(path string) ([]byte, *zk.Stat, <-chan zk.Event, error) {
	data, stat, err := c.get(path, true)
	if err != nil {
		return nil, nil, nil, err
	}
	return data, stat, c.addWatcher(path), nil
}

func (c *Conn) get(path string, watch bool) ([]byte, *zk.Stat, error) {
	req := &coordination.GetRequest{Path: path}
	req.Xid = c.nextXid()
	req.Watch = watch
	resp, err := c.request(req)
	if err != nil {
		return nil, nil, err
	}
	get := resp.(*coordination.GetResponse)
	if get.Err != coordination.OK {
		return nil, nil, errToZk(get.Err)
	}
	return get.Data, statToZk(get.Stat), nil
}

// Set replaces the data of a node; version -1 skips the version check.
func (c *Conn) Set(path string, data []byte, version int32) (*zk.Stat, error) {
	req := &coordination.SetRequest{Path: path, Data: data, Version: version}
	req.Xid = c.nextXid()
	resp, err := c.request(req)
	if err != nil {
		return nil, err
	}
	set := resp.(*coordination.SetResponse)
	if set.Err != coordination.OK {
		return nil, errToZk(set.Err)
	}
	return statToZk(set.Stat), nil
}

// Delete removes a node; version -1 skips the version check.
func (c *Conn) Delete(path string, version int32) error {
	req := &coordination.RemoveRequest{Path: path, Version: version}
	req.Xid = c.nextXid()
	resp, err := c.request(req)
	if err != nil {
		return err
	}
	return errToZk(resp.Header().Err)
}

// Exists reports whether the node exists, with its stat when it does.
func (c *Conn) Exists(path string) (bool, *zk.Stat, error) {
	return c.exists(path, false)
}

// ExistsW is Exists plus a one-shot watch; the watch is installed even when
// the node is missing, so a later create still fires it.
func (c *Conn) ExistsW(path string) (bool, *zk.Stat, <-chan zk.Event, error) {
	ok, stat, err := c.exists(path, true)
	if err != nil {
		return false, nil, nil, err
	}
	return ok, stat, c.addWatcher(path), nil
}

func (c *Conn) exists(path string, watch bool) (bool, *zk.Stat, error) {
	req := &coordination.ExistsRequest{Path: path}
	req.Xid = c.nextXid()
	req.Watch = watch
	resp, err := c.request(req)
	if err != nil {
		return false, nil, err
	}
	ex := resp.(*coordination.ExistsResponse)
	switch ex.Err {
	case coordination.OK:
		return true, statToZk(ex.Stat), nil
	case coordination.NoNode:
		return false, nil, nil
	default:
		return false, nil, errToZk(ex.Err)
	}
}

// Children lists the direct children of a node in tree order.
func (c *Conn) Children(path string) ([]string, *zk.Stat, error) {
	return c.children(path, false)
}

// ChildrenW is Children plus a one-shot child watch on the path.
func (c *Conn) ChildrenW(path string) ([]string, *zk.Stat, <-chan zk.Event, error) {
	names, stat, err := c.children(path, true)
	if err != nil {
		return nil, nil, nil, err
	}
	return names, stat, c.addWatcher(path), nil
}

func (c *Conn) children(path string, watch bool) ([]string, *zk.Stat, error) {
	req := &coordination.ListRequest{Path: path}
	req.Xid = c.nextXid()
	req.Watch = watch
	resp, err := c.request(req)
	if err != nil {
		return nil, nil, err
	}
	list := resp.(*coordination.ListResponse)
	if list.Err != coordination.OK {
		return nil, nil, errToZk(list.Err)
	}
	return list.Names, statToZk(list.Stat), nil
}

// MultiResult is the outcome of one sub-operation of a Multi.
type MultiResult struct {
	Err         error
	PathCreated string
	Stat        *zk.Stat
}

// Multi submits an atomic batch. Ops accepts the go-zookeeper request structs
// *zk.CreateRequest, *zk.DeleteRequest, *zk.SetDataRequest and
// *zk.CheckVersionRequest. The batch either fully applies or leaves no trace;
// per-op outcomes are reported in order.
func (c *Conn) Multi(ops ...interface{}) ([]MultiResult, error) {
	subs := make([]coordination.Request, 0, len(ops))
	for _, op := range ops {
		switch req := op.(type) {
		case *zk.CreateRequest:
			subs = append(subs, &coordination.CreateRequest{
				Path:       req.Path,
				Data:       req.Data,
				Ephemeral:  req.Flags&zk.FlagEphemeral != 0,
				Sequential: req.Flags&zk.FlagSequence != 0,
			})
		case *zk.DeleteRequest:
			subs = append(subs, &coordination.RemoveRequest{Path: req.Path, Version: req.Version})
		case *zk.SetDataRequest:
			subs = append(subs, &coordination.SetRequest{Path: req.Path, Data: req.Data, Version: req.Version})
		case *zk.CheckVersionRequest:
			subs = append(subs, &coordination.CheckRequest{Path: req.Path, Version: req.Version})
		default:
			return nil, perrors.Errorf("unsupported multi op %T", op)
		}
	}

	multi := &coordination.MultiRequest{Ops: subs}
	multi.Xid = c.nextXid()
	resp, err := c.request(multi)
	if err != nil {
		return nil, err
	}

	mr := resp.(*coordination.MultiResponse)
	results := make([]MultiResult, len(mr.Responses))
	for i, sub := range mr.Responses {
		results[i].Err = errToZk(sub.Header().Err)
		switch r := sub.(type) {
		case *coordination.CreateResponse:
			results[i].PathCreated = r.PathCreated
		case *coordination.SetResponse:
			results[i].Stat = statToZk(r.Stat)
		}
	}
	return results, nil
}

// Close terminates the session: its ephemeral nodes are removed, its watches
// dropped and the mailbox closed.
func (c *Conn) Close() error {
	if !c.closed.CAS(false, true) {
		return nil
	}
	req := &coordination.CloseRequest{}
	req.Xid = c.nextXid()
	_, err := c.server.process(c, req)
	c.server.dropSession(c.sessionID)
	close(c.events)
	log.DefaultLogger.Infof("[client] session %d closed", c.sessionID)
	return err
}
