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
	perrors "github.com/pkg/errors"

	"mosn.io/testkeeper/coordination"
)

type setProcessor struct {
	req *coordination.SetRequest
}

func newSetProcessor(req coordination.Request) (requestProcessor, error) {
	sr, ok := req.(*coordination.SetRequest)
	if !ok {
		return nil, perrors.Errorf("request type %T does not match op %s", req, req.GetOpNum())
	}
	return &setProcessor{req: sr}, nil
}

func (p *setProcessor) Process(ctx *txnContext) (coordination.Response, undoFunc, error) {
	resp := p.req.MakeResponse().(*coordination.SetResponse)
	path := p.req.Path
	n := ctx.tree.Get(path)

	switch {
	case n == nil:
		resp.Err = coordination.NoNode
	case p.req.Version == coordination.AnyVersion || p.req.Version == n.Stat.Version:
		prev := n.clone()

		n.Data = append([]byte(nil), p.req.Data...)
		n.Stat.Version++
		n.Stat.Mzxid = ctx.zxid
		n.Stat.Mtime = ctx.now
		n.Stat.DataLength = int32(len(p.req.Data))
		ctx.tree.Get(parentPath(path)).Stat.Cversion++

		resp.Stat = n.Stat
		resp.Err = coordination.OK

		tree := ctx.tree
		undo := func() {
			*tree.Get(path) = *prev
			tree.Get(parentPath(path)).Stat.Cversion--
		}
		return resp, undo, nil
	default:
		resp.Err = coordination.BadVersion
	}

	return resp, nil, nil
}

// Set raises only data watches: the child set of the parent is unchanged.
func (p *setProcessor) ProcessWatches(w *Watches) []coordination.ResponseForSession {
	return w.fireData(p.req.Path, coordination.EventChanged)
}
