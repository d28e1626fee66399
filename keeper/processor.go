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
	"sync"

	perrors "github.com/pkg/errors"

	"mosn.io/testkeeper/coordination"
)

// txnContext carries the mutable storage state one processor call operates on.
// zxid is the id the current request commits under; now is the wall clock in
// milliseconds.
type txnContext struct {
	tree       *Tree
	ephemerals Ephemerals
	zxid       int64
	sessionID  int64
	now        int64
}

// undoFunc reverts the state changes of one processor call. It must run under
// the same storage lock as the forward operation. nil means nothing to undo.
type undoFunc func()

// requestProcessor executes one request against the coordination state.
// Process returns the protocol response and the undo; a non-nil error is an
// internal contract violation, not a protocol failure. ProcessWatches is
// invoked by the facade only after a successful Process.
type requestProcessor interface {
	Process(ctx *txnContext) (coordination.Response, undoFunc, error)
	ProcessWatches(w *Watches) []coordination.ResponseForSession
}

// noWatches is embedded by processors that never raise watch events.
type noWatches struct{}

func (noWatches) ProcessWatches(*Watches) []coordination.ResponseForSession { return nil }

type processorCreator func(req coordination.Request) (requestProcessor, error)

var (
	procMux    sync.RWMutex
	processors = make(map[coordination.OpNum]processorCreator, 16)
)

// registerProcessor binds an op code to a processor factory. Registering an op
// twice is a contract violation.
func registerProcessor(op coordination.OpNum, creator processorCreator) error {
	procMux.Lock()
	defer procMux.Unlock()

	if _, ok := processors[op]; ok {
		return perrors.Errorf("processor for op %s already registered", op)
	}
	processors[op] = creator
	return nil
}

func mustRegister(op coordination.OpNum, creator processorCreator) {
	if err := registerProcessor(op, creator); err != nil {
		panic(err)
	}
}

// processorFor resolves the processor bound to the request's op code. Unknown
// op codes fail hard.
func processorFor(req coordination.Request) (requestProcessor, error) {
	procMux.RLock()
	creator, ok := processors[req.GetOpNum()]
	procMux.RUnlock()

	if !ok {
		return nil, perrors.Errorf("unknown operation type %s", req.GetOpNum())
	}
	return creator(req)
}

func init() {
	mustRegister(coordination.OpHeartbeat, newHeartbeatProcessor)
	mustRegister(coordination.OpClose, newCloseProcessor)
	mustRegister(coordination.OpCreate, newCreateProcessor)
	mustRegister(coordination.OpRemove, newRemoveProcessor)
	mustRegister(coordination.OpExists, newExistsProcessor)
	mustRegister(coordination.OpGet, newGetProcessor)
	mustRegister(coordination.OpSet, newSetProcessor)
	mustRegister(coordination.OpList, newListProcessor)
	mustRegister(coordination.OpSimpleList, newListProcessor)
	mustRegister(coordination.OpCheck, newCheckProcessor)
	mustRegister(coordination.OpMulti, newMultiProcessor)
}

type heartbeatProcessor struct {
	noWatches
	req *coordination.HeartbeatRequest
}

func newHeartbeatProcessor(req coordination.Request) (requestProcessor, error) {
	hb, ok := req.(*coordination.HeartbeatRequest)
	if !ok {
		return nil, perrors.Errorf("request type %T does not match op %s", req, req.GetOpNum())
	}
	return &heartbeatProcessor{req: hb}, nil
}

func (p *heartbeatProcessor) Process(*txnContext) (coordination.Response, undoFunc, error) {
	return p.req.MakeResponse(), nil, nil
}

// closeProcessor exists so the op is registered, but Close is dispatched by
// the storage facade; reaching Process is a contract violation.
type closeProcessor struct {
	noWatches
}

func newCloseProcessor(coordination.Request) (requestProcessor, error) {
	return &closeProcessor{}, nil
}

func (*closeProcessor) Process(*txnContext) (coordination.Response, undoFunc, error) {
	return nil, nil, perrors.New("called process on close request")
}
