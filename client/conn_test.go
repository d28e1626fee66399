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
	"testing"
	"time"

	"github.com/dubbogo/go-zookeeper/zk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mosn.io/testkeeper/config"
)

func newTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	s, err := NewServer(opts...)
	require.NoError(t, err)
	return s
}

func connect(t *testing.T, s *Server) *Conn {
	t.Helper()
	c, err := s.Connect()
	require.NoError(t, err)
	return c
}

func recvEvent(t *testing.T, ch <-chan zk.Event) zk.Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for watch event")
		return zk.Event{}
	}
}

func TestCreateGetRoundTrip(t *testing.T) {
	s := newTestServer(t)
	c := connect(t, s)

	path, err := c.Create("/svc", []byte("payload"), 0)
	require.NoError(t, err)
	assert.Equal(t, "/svc", path)

	data, stat, err := c.Get("/svc")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)
	assert.Equal(t, int32(0), stat.Version)
	assert.Equal(t, int32(len("payload")), stat.DataLength)
}

func TestSequentialCreate(t *testing.T) {
	s := newTestServer(t)
	c := connect(t, s)

	_, err := c.Create("/q", nil, 0)
	require.NoError(t, err)

	first, err := c.Create("/q/item", nil, zk.FlagSequence)
	require.NoError(t, err)
	second, err := c.Create("/q/item", nil, zk.FlagSequence)
	require.NoError(t, err)
	assert.Equal(t, "/q/item0000000000", first)
	assert.Equal(t, "/q/item0000000001", second)

	names, stat, err := c.Children("/q")
	require.NoError(t, err)
	assert.Equal(t, []string{"item0000000000", "item0000000001"}, names)
	assert.Equal(t, int32(2), stat.NumChildren)
}

func TestErrorMapping(t *testing.T) {
	s := newTestServer(t)
	c := connect(t, s)

	_, _, err := c.Get("/missing")
	assert.Equal(t, zk.ErrNoNode, err)

	_, err = c.Create("/dup", nil, 0)
	require.NoError(t, err)
	_, err = c.Create("/dup", nil, 0)
	assert.Equal(t, zk.ErrNodeExists, err)

	_, err = c.Set("/dup", []byte("x"), 5)
	assert.Equal(t, zk.ErrBadVersion, err)

	_, err = c.Create("/dup/sub", nil, 0)
	require.NoError(t, err)
	err = c.Delete("/dup", -1)
	assert.Equal(t, zk.ErrNotEmpty, err)

	_, err = c.Create("/eph", nil, zk.FlagEphemeral)
	require.NoError(t, err)
	_, err = c.Create("/eph/sub", nil, 0)
	assert.Equal(t, zk.ErrNoChildrenForEphemerals, err)
}

func TestEphemeralCloseNotifiesWatcher(t *testing.T) {
	s := newTestServer(t)
	owner := connect(t, s)
	watcher := connect(t, s)

	_, err := owner.Create("/e", nil, zk.FlagEphemeral)
	require.NoError(t, err)

	ok, _, ch, err := watcher.ExistsW("/e")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, owner.Close())

	ev := recvEvent(t, ch)
	assert.Equal(t, zk.EventNodeDeleted, ev.Type)
	assert.Equal(t, "/e", ev.Path)
	assert.Equal(t, zk.StateConnected, ev.State)

	exists, _, err := watcher.Exists("/e")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestExistsWatchOnMissingNode(t *testing.T) {
	s := newTestServer(t)
	creator := connect(t, s)
	watcher := connect(t, s)

	ok, _, ch, err := watcher.ExistsW("/later")
	require.NoError(t, err)
	require.False(t, ok)

	_, err = creator.Create("/later", nil, 0)
	require.NoError(t, err)

	ev := recvEvent(t, ch)
	assert.Equal(t, zk.EventNodeCreated, ev.Type)
	assert.Equal(t, "/later", ev.Path)
}

func TestChildrenWatch(t *testing.T) {
	s := newTestServer(t)
	c := connect(t, s)
	other := connect(t, s)

	_, err := c.Create("/grp", nil, 0)
	require.NoError(t, err)

	names, _, ch, err := other.ChildrenW("/grp")
	require.NoError(t, err)
	require.Empty(t, names)

	_, err = c.Create("/grp/m1", nil, 0)
	require.NoError(t, err)

	ev := recvEvent(t, ch)
	assert.Equal(t, zk.EventNodeChildrenChanged, ev.Type)
	assert.Equal(t, "/grp", ev.Path)
}

func TestGetWatchFiresOnSet(t *testing.T) {
	s := newTestServer(t)
	c := connect(t, s)

	_, err := c.Create("/k", []byte("v0"), 0)
	require.NoError(t, err)

	_, _, ch, err := c.GetW("/k")
	require.NoError(t, err)

	_, err = c.Set("/k", []byte("v1"), -1)
	require.NoError(t, err)

	ev := recvEvent(t, ch)
	assert.Equal(t, zk.EventNodeDataChanged, ev.Type)
	assert.Equal(t, "/k", ev.Path)
}

func TestMultiAtomicity(t *testing.T) {
	s := newTestServer(t)
	c := connect(t, s)

	_, err := c.Create("/x", []byte("start"), 0)
	require.NoError(t, err)

	results, err := c.Multi(
		&zk.SetDataRequest{Path: "/x", Data: []byte("a"), Version: 0},
		&zk.CheckVersionRequest{Path: "/x", Version: 5},
	)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, zk.ErrBadVersion, results[1].Err)

	data, stat, err := c.Get("/x")
	require.NoError(t, err)
	assert.Equal(t, []byte("start"), data)
	assert.Equal(t, int32(0), stat.Version)
}

func TestMultiSuccessReportsResults(t *testing.T) {
	s := newTestServer(t)
	c := connect(t, s)

	results, err := c.Multi(
		&zk.CreateRequest{Path: "/m", Data: []byte("v0")},
		&zk.SetDataRequest{Path: "/m", Data: []byte("v1"), Version: 0},
		&zk.DeleteRequest{Path: "/m", Version: 1},
	)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "/m", results[0].PathCreated)
	require.NotNil(t, results[1].Stat)
	assert.Equal(t, int32(1), results[1].Stat.Version)
	assert.NoError(t, results[2].Err)

	exists, _, err := c.Exists("/m")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMultiRejectsUnsupportedOp(t *testing.T) {
	s := newTestServer(t)
	c := connect(t, s)

	_, err := c.Multi("not a request")
	require.Error(t, err)
}

func TestFinalizeExpiresWatchers(t *testing.T) {
	s := newTestServer(t)
	c := connect(t, s)

	_, err := c.Create("/k", nil, 0)
	require.NoError(t, err)
	_, _, ch, err := c.GetW("/k")
	require.NoError(t, err)

	require.NoError(t, s.Finalize())

	ev := recvEvent(t, ch)
	assert.Equal(t, zk.EventSession, ev.Type)
	assert.Equal(t, zk.StateExpired, ev.State)
	assert.Equal(t, zk.ErrSessionExpired, ev.Err)

	_, err = s.Connect()
	assert.Equal(t, zk.ErrClosing, err)
	require.Error(t, s.Finalize())
}

func TestClosedConnRejectsRequests(t *testing.T) {
	s := newTestServer(t)
	c := connect(t, s)
	require.NoError(t, c.Close())

	_, _, err := c.Get("/")
	assert.Equal(t, zk.ErrConnectionClosed, err)
	assert.NoError(t, c.Close())
}

func TestServerSeededFromConfig(t *testing.T) {
	cfg := &config.Config{
		Name:        "seeded",
		EventBuffer: 8,
		Seeds: []config.Seed{
			{Path: "/base/sub", Data: "hello"},
		},
	}
	s := newTestServer(t, WithConfig(cfg))
	c := connect(t, s)

	data, _, err := c.Get("/base/sub")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	names, _, err := c.Children("/base")
	require.NoError(t, err)
	assert.Equal(t, []string{"sub"}, names)
}
