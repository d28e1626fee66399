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

type existsProcessor struct {
	noWatches
	req *coordination.ExistsRequest
}

func newExistsProcessor(req coordination.Request) (requestProcessor, error) {
	er, ok := req.(*coordination.ExistsRequest)
	if !ok {
		return nil, perrors.Errorf("request type %T does not match op %s", req, req.GetOpNum())
	}
	return &existsProcessor{req: er}, nil
}

func (p *existsProcessor) Process(ctx *txnContext) (coordination.Response, undoFunc, error) {
	resp := p.req.MakeResponse().(*coordination.ExistsResponse)
	if n := ctx.tree.Get(p.req.Path); n != nil {
		resp.Stat = n.Stat
		resp.Err = coordination.OK
	} else {
		resp.Err = coordination.NoNode
	}
	return resp, nil, nil
}

type getProcessor struct {
	noWatches
	req *coordination.GetRequest
}

func newGetProcessor(req coordination.Request) (requestProcessor, error) {
	gr, ok := req.(*coordination.GetRequest)
	if !ok {
		return nil, perrors.Errorf("request type %T does not match op %s", req, req.GetOpNum())
	}
	return &getProcessor{req: gr}, nil
}

func (p *getProcessor) Process(ctx *txnContext) (coordination.Response, undoFunc, error) {
	resp := p.req.MakeResponse().(*coordination.GetResponse)
	if n := ctx.tree.Get(p.req.Path); n != nil {
		resp.Stat = n.Stat
		resp.Data = append([]byte(nil), n.Data...)
		resp.Err = coordination.OK
	} else {
		resp.Err = coordination.NoNode
	}
	return resp, nil, nil
}

type listProcessor struct {
	noWatches
	req *coordination.ListRequest
}

func newListProcessor(req coordination.Request) (requestProcessor, error) {
	lr, ok := req.(*coordination.ListRequest)
	if !ok {
		return nil, perrors.Errorf("request type %T does not match op %s", req, req.GetOpNum())
	}
	return &listProcessor{req: lr}, nil
}

func (p *listProcessor) Process(ctx *txnContext) (coordination.Response, undoFunc, error) {
	if p.req.Path == "" {
		return nil, nil, perrors.New("logical error: list path cannot be empty")
	}
	resp := p.req.MakeResponse().(*coordination.ListResponse)
	if n := ctx.tree.Get(p.req.Path); n != nil {
		resp.Names = ctx.tree.Children(p.req.Path)
		resp.Stat = n.Stat
		resp.Err = coordination.OK
	} else {
		resp.Err = coordination.NoNode
	}
	return resp, nil, nil
}

type checkProcessor struct {
	noWatches
	req *coordination.CheckRequest
}

func newCheckProcessor(req coordination.Request) (requestProcessor, error) {
	cr, ok := req.(*coordination.CheckRequest)
	if !ok {
		return nil, perrors.Errorf("request type %T does not match op %s", req, req.GetOpNum())
	}
	return &checkProcessor{req: cr}, nil
}

func (p *checkProcessor) Process(ctx *txnContext) (coordination.Response, undoFunc, error) {
	resp := p.req.MakeResponse().(*coordination.CheckResponse)
	n := ctx.tree.Get(p.req.Path)
	switch {
	case n == nil:
		resp.Err = coordination.NoNode
	case p.req.Version != coordination.AnyVersion && p.req.Version != n.Stat.Version:
		resp.Err = coordination.BadVersion
	default:
		resp.Err = coordination.OK
	}
	return resp, nil, nil
}
