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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mosn.io/testkeeper/coordination"
)

func TestSnapshotRoundTrip(t *testing.T) {
	src := NewStorage()
	mustCreate(t, src, 1, "/svc", "", false, false)
	mustCreate(t, src, 1, "/svc/cfg", "payload", false, false)
	mustCreate(t, src, 5, "/svc/worker", "", true, true)

	blob, err := src.Snapshot()
	require.NoError(t, err)

	dst := NewStorage()
	require.NoError(t, dst.Restore(blob))

	assert.Equal(t, src.Stats().Zxid, dst.Stats().Zxid)
	assert.Equal(t, src.Stats().Nodes, dst.Stats().Nodes)
	assert.Equal(t, src.Stats().Ephemerals, dst.Stats().Ephemerals)

	resp := ownResponse(t, doRequest(t, dst, 1, &coordination.GetRequest{Path: "/svc/cfg"})).(*coordination.GetResponse)
	require.Equal(t, coordination.OK, resp.Err)
	assert.Equal(t, []byte("payload"), resp.Data)

	// the restored storage keeps serving: the ephemeral owner can still close
	doRequest(t, dst, 5, &coordination.CloseRequest{})
	after := ownResponse(t, doRequest(t, dst, 1, &coordination.ListRequest{Path: "/svc"})).(*coordination.ListResponse)
	assert.Equal(t, []string{"cfg"}, after.Names)
	assertInvariants(t, dst)
}

func TestRestoreRejectsLiveStorage(t *testing.T) {
	src := NewStorage()
	blob, err := src.Snapshot()
	require.NoError(t, err)

	used := NewStorage()
	mustCreate(t, used, 1, "/busy", "", false, false)
	require.Error(t, used.Restore(blob))
}

func TestRestoreRejectsGarbage(t *testing.T) {
	s := NewStorage()
	require.Error(t, s.Restore([]byte("not a snapshot")))
}
