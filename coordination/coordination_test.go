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

package coordination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeResponseKinds(t *testing.T) {
	cases := []struct {
		req  Request
		resp Response
	}{
		{&HeartbeatRequest{}, &HeartbeatResponse{}},
		{&CreateRequest{Path: "/a"}, &CreateResponse{}},
		{&RemoveRequest{Path: "/a"}, &RemoveResponse{}},
		{&ExistsRequest{Path: "/a"}, &ExistsResponse{}},
		{&GetRequest{Path: "/a"}, &GetResponse{}},
		{&SetRequest{Path: "/a"}, &SetResponse{}},
		{&ListRequest{Path: "/a"}, &ListResponse{}},
		{&CheckRequest{Path: "/a"}, &CheckResponse{}},
		{&CloseRequest{}, &CloseResponse{}},
	}
	for _, c := range cases {
		resp := c.req.MakeResponse()
		assert.IsType(t, c.resp, resp, "%s", c.req.GetOpNum())
		assert.Equal(t, OK, resp.Header().Err)
	}
}

func TestMakeResponseOpNumMatchesRequest(t *testing.T) {
	reqs := []Request{
		&HeartbeatRequest{},
		&CreateRequest{},
		&RemoveRequest{},
		&ExistsRequest{},
		&GetRequest{},
		&SetRequest{},
		&ListRequest{},
		&CheckRequest{},
		&CloseRequest{},
	}
	for _, req := range reqs {
		assert.Equal(t, req.GetOpNum(), req.MakeResponse().GetOpNum())
	}
}

func TestSimpleListOpNum(t *testing.T) {
	plain := &ListRequest{Path: "/a"}
	simple := &ListRequest{Path: "/a", Simple: true}
	assert.Equal(t, OpList, plain.GetOpNum())
	assert.Equal(t, OpSimpleList, simple.GetOpNum())
	assert.Equal(t, OpSimpleList, simple.MakeResponse().GetOpNum())
}

func TestMultiMakeResponsePreallocates(t *testing.T) {
	multi := &MultiRequest{Ops: []Request{
		&CreateRequest{Path: "/a"},
		&CheckRequest{Path: "/a"},
	}}
	resp := multi.MakeResponse().(*MultiResponse)
	require.Len(t, resp.Responses, 2)
}

func TestRequestHeaderAccessors(t *testing.T) {
	req := &GetRequest{Path: "/a"}
	req.Xid = 7
	req.Watch = true
	assert.Equal(t, int32(7), req.GetXid())
	assert.True(t, req.HasWatch())
	assert.Equal(t, "/a", req.GetPath())
}

func TestStrings(t *testing.T) {
	assert.Equal(t, "Create", OpCreate.String())
	assert.Equal(t, "SimpleList", OpSimpleList.String())
	assert.Equal(t, "ZNONODE", NoNode.String())
	assert.Equal(t, "ZSESSIONEXPIRED", SessionExpired.String())
	assert.Equal(t, "CHILD", EventChild.String())
	assert.Equal(t, "SESSION", EventSession.String())
}

func TestWatchResponseIsNotification(t *testing.T) {
	w := &WatchResponse{Path: "/a", Type: EventCreated, State: StateConnected}
	assert.Equal(t, OpNotification, w.GetOpNum())
}
