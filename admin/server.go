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

package admin

import (
	"net"

	perrors "github.com/pkg/errors"
	"github.com/ugorji/go/codec"
	"github.com/valyala/fasthttp"

	"mosn.io/pkg/log"
	"mosn.io/pkg/utils"

	"mosn.io/testkeeper/coordination"
	"mosn.io/testkeeper/keeper"
)

const (
	statsPath = "/api/v1/stats"
	nodePath  = "/api/v1/node"
)

// adminSession issues the read requests behind the node endpoint. Reads never
// create ephemerals, so the session needs no lifecycle.
const adminSession int64 = -1

var jsonHandle = &codec.JsonHandle{}

// Server exposes read-only diagnostics of a keeper storage over HTTP.
type Server struct {
	addr    string
	storage *keeper.Storage
	srv     *fasthttp.Server
	ln      net.Listener
}

func NewServer(addr string, storage *keeper.Storage) *Server {
	s := &Server{
		addr:    addr,
		storage: storage,
	}
	s.srv = &fasthttp.Server{
		Handler: s.handleHTTP,
		Name:    "testkeeper-admin",
	}
	return s
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return perrors.WithMessagef(err, "admin listen %s", s.addr)
	}
	s.Serve(ln)
	return nil
}

// Serve runs the admin server on an existing listener in the background.
func (s *Server) Serve(ln net.Listener) {
	s.ln = ln
	log.DefaultLogger.Infof("[admin] serving on %s", ln.Addr())
	utils.GoWithRecover(func() {
		if err := s.srv.Serve(ln); err != nil {
			log.DefaultLogger.Errorf("[admin] server stopped: %v", err)
		}
	}, nil)
}

// Addr returns the bound address, once serving.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

func (s *Server) Stop() error {
	return s.srv.Shutdown()
}

func (s *Server) handleHTTP(ctx *fasthttp.RequestCtx) {
	switch string(ctx.Path()) {
	case statsPath:
		s.handleStats(ctx)
	case nodePath:
		s.handleNode(ctx)
	default:
		ctx.SetStatusCode(fasthttp.StatusNotFound)
	}
}

func writeJSON(ctx *fasthttp.RequestCtx, v interface{}) {
	var out []byte
	if err := codec.NewEncoderBytes(&out, jsonHandle).Encode(v); err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetContentType("application/json")
	ctx.SetBody(out)
}

func (s *Server) handleStats(ctx *fasthttp.RequestCtx) {
	writeJSON(ctx, s.storage.Stats())
}

type nodeView struct {
	Path string            `json:"path"`
	Data string            `json:"data"`
	Stat coordination.Stat `json:"stat"`
}

func (s *Server) handleNode(ctx *fasthttp.RequestCtx) {
	path := string(ctx.QueryArgs().Peek("path"))
	if path == "" {
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		return
	}
	req := &coordination.GetRequest{Path: path}
	results, err := s.storage.ProcessRequest(req, adminSession)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}
	resp := results[len(results)-1].Response.(*coordination.GetResponse)
	if resp.Err != coordination.OK {
		ctx.SetStatusCode(fasthttp.StatusNotFound)
		return
	}
	writeJSON(ctx, nodeView{Path: path, Data: string(resp.Data), Stat: resp.Stat})
}
