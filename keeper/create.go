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
	"fmt"

	perrors "github.com/pkg/errors"

	"mosn.io/testkeeper/coordination"
)

type createProcessor struct {
	req *coordination.CreateRequest

	// final path after the sequence suffix, recorded for watch firing
	pathCreated string
}

func newCreateProcessor(req coordination.Request) (requestProcessor, error) {
	cr, ok := req.(*coordination.CreateRequest)
	if !ok {
		return nil, perrors.Errorf("request type %T does not match op %s", req, req.GetOpNum())
	}
	return &createProcessor{req: cr}, nil
}

func (p *createProcessor) Process(ctx *txnContext) (coordination.Response, undoFunc, error) {
	resp := p.req.MakeResponse().(*coordination.CreateResponse)
	path := p.req.Path
	parentKey := parentPath(path)
	parent := ctx.tree.Get(parentKey)

	switch {
	case parent == nil:
		resp.Err = coordination.NoNode
	case parent.Ephemeral:
		resp.Err = coordination.NoChildrenForEphemerals
	case !p.req.Sequential && ctx.tree.Get(path) != nil:
		resp.Err = coordination.NodeExists
	default:
		created := newNode()
		created.Data = append([]byte(nil), p.req.Data...)
		created.Ephemeral = p.req.Ephemeral
		created.Sequential = p.req.Sequential
		created.Stat.Czxid = ctx.zxid
		created.Stat.Mzxid = ctx.zxid
		created.Stat.Ctime = ctx.now
		created.Stat.Mtime = ctx.now
		created.Stat.DataLength = int32(len(p.req.Data))
		if p.req.Ephemeral {
			created.Stat.EphemeralOwner = ctx.sessionID
		}

		pathCreated := path
		if p.req.Sequential {
			pathCreated += fmt.Sprintf("%010d", parent.SeqNum)
		}

		// the sequence counter advances even for plain creates
		parent.SeqNum++
		parent.Stat.Cversion++
		parent.Stat.NumChildren++

		ctx.tree.Insert(pathCreated, created)
		if p.req.Ephemeral {
			ctx.ephemerals.Add(ctx.sessionID, pathCreated)
		}

		p.pathCreated = pathCreated
		resp.PathCreated = pathCreated
		resp.Err = coordination.OK

		tree, eph := ctx.tree, ctx.ephemerals
		session, ephemeral := ctx.sessionID, p.req.Ephemeral
		undo := func() {
			tree.Delete(pathCreated)
			if ephemeral {
				eph.Remove(session, pathCreated)
			}
			undoParent := tree.Get(parentKey)
			undoParent.SeqNum--
			undoParent.Stat.Cversion--
			undoParent.Stat.NumChildren--
		}
		return resp, undo, nil
	}

	return resp, nil, nil
}

func (p *createProcessor) ProcessWatches(w *Watches) []coordination.ResponseForSession {
	return w.fire(p.pathCreated, coordination.EventCreated)
}
