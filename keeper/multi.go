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

// multiProcessor applies its sub-requests in order; on the first protocol
// error it rewrites the response list and replays the collected undos in
// reverse, so the whole batch is atomic.
type multiProcessor struct {
	req  *coordination.MultiRequest
	subs []requestProcessor
}

func newMultiProcessor(req coordination.Request) (requestProcessor, error) {
	mr, ok := req.(*coordination.MultiRequest)
	if !ok {
		return nil, perrors.Errorf("request type %T does not match op %s", req, req.GetOpNum())
	}
	subs := make([]requestProcessor, 0, len(mr.Ops))
	for _, sub := range mr.Ops {
		switch sub.GetOpNum() {
		case coordination.OpCreate, coordination.OpRemove, coordination.OpSet, coordination.OpCheck:
		default:
			return nil, perrors.Errorf("illegal command as part of multi request: %s", sub.GetOpNum())
		}
		if err := validatePath(sub.GetPath()); err != nil {
			return nil, err
		}
		proc, err := processorFor(sub)
		if err != nil {
			return nil, err
		}
		subs = append(subs, proc)
	}
	return &multiProcessor{req: mr, subs: subs}, nil
}

func runUndos(undos []undoFunc) {
	for i := len(undos) - 1; i >= 0; i-- {
		undos[i]()
	}
}

func (p *multiProcessor) Process(ctx *txnContext) (coordination.Response, undoFunc, error) {
	resp := p.req.MakeResponse().(*coordination.MultiResponse)
	undos := make([]undoFunc, 0, len(p.subs))

	for i, sub := range p.subs {
		cur, undo, err := sub.Process(ctx)
		if err != nil {
			runUndos(undos)
			return nil, nil, err
		}
		resp.Responses[i] = cur

		if subErr := cur.Header().Err; subErr != coordination.OK {
			for j := 0; j <= i; j++ {
				errResp := &coordination.ErrorResponse{}
				errResp.Err = resp.Responses[j].Header().Err
				resp.Responses[j] = errResp
			}
			for j := i + 1; j < len(resp.Responses); j++ {
				errResp := &coordination.ErrorResponse{}
				errResp.Err = coordination.RuntimeInconsistency
				resp.Responses[j] = errResp
			}
			runUndos(undos)
			// the outer error stays ZOK; the per-sub errors carry the failure
			return resp, nil, nil
		}

		if undo != nil {
			undos = append(undos, undo)
		}
	}

	resp.Err = coordination.OK
	return resp, nil, nil
}

// Watch events of a successful multi are the concatenation of the events each
// sub-request fires, in sub order.
func (p *multiProcessor) ProcessWatches(w *Watches) []coordination.ResponseForSession {
	var results []coordination.ResponseForSession
	for _, sub := range p.subs {
		results = append(results, sub.ProcessWatches(w)...)
	}
	return results
}
