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

type removeProcessor struct {
	req *coordination.RemoveRequest
}

func newRemoveProcessor(req coordination.Request) (requestProcessor, error) {
	rr, ok := req.(*coordination.RemoveRequest)
	if !ok {
		return nil, perrors.Errorf("request type %T does not match op %s", req, req.GetOpNum())
	}
	return &removeProcessor{req: rr}, nil
}

func (p *removeProcessor) Process(ctx *txnContext) (coordination.Response, undoFunc, error) {
	resp := p.req.MakeResponse().(*coordination.RemoveResponse)
	path := p.req.Path
	n := ctx.tree.Get(path)

	switch {
	case n == nil:
		resp.Err = coordination.NoNode
	case p.req.Version != coordination.AnyVersion && p.req.Version != n.Stat.Version:
		resp.Err = coordination.BadVersion
	case n.Stat.NumChildren > 0:
		resp.Err = coordination.NotEmpty
	default:
		prev := n.clone()
		if prev.Ephemeral {
			ctx.ephemerals.Remove(prev.Stat.EphemeralOwner, path)
		}
		ctx.tree.Delete(path)
		parent := ctx.tree.Get(parentPath(path))
		parent.Stat.NumChildren--
		parent.Stat.Cversion++
		resp.Err = coordination.OK

		tree, eph := ctx.tree, ctx.ephemerals
		undo := func() {
			if prev.Ephemeral {
				eph.Add(prev.Stat.EphemeralOwner, path)
			}
			tree.Insert(path, prev)
			undoParent := tree.Get(parentPath(path))
			undoParent.Stat.NumChildren++
			undoParent.Stat.Cversion--
		}
		return resp, undo, nil
	}

	return resp, nil, nil
}

func (p *removeProcessor) ProcessWatches(w *Watches) []coordination.ResponseForSession {
	return w.fire(p.req.Path, coordination.EventDeleted)
}
