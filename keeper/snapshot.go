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
	"github.com/ugorji/go/codec"

	"mosn.io/testkeeper/coordination"
)

var snapshotHandle = &codec.MsgpackHandle{}

type snapshotNode struct {
	Data       []byte
	Ephemeral  bool
	Sequential bool
	SeqNum     int32
	Stat       coordination.Stat
}

// snapshot captures the durable part of the storage. Watches are session
// bound and deliberately excluded.
type snapshot struct {
	Zxid       int64
	Nodes      map[string]snapshotNode
	Ephemerals map[int64][]string
}

// Snapshot serializes the tree, the ephemeral index and the zxid counter to a
// msgpack blob, so tests can stamp out prebuilt fixtures.
func (s *Storage) Snapshot() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := snapshot{
		Zxid:       s.zxid.Load(),
		Nodes:      make(map[string]snapshotNode, s.tree.Len()),
		Ephemerals: make(map[int64][]string, len(s.ephemerals)),
	}
	s.tree.Ascend(func(path string, n *Node) bool {
		snap.Nodes[path] = snapshotNode{
			Data:       append([]byte(nil), n.Data...),
			Ephemeral:  n.Ephemeral,
			Sequential: n.Sequential,
			SeqNum:     n.SeqNum,
			Stat:       n.Stat,
		}
		return true
	})
	for session := range s.ephemerals {
		snap.Ephemerals[session] = s.ephemerals.Paths(session)
	}

	var out []byte
	if err := codec.NewEncoderBytes(&out, snapshotHandle).Encode(snap); err != nil {
		return nil, perrors.WithMessage(err, "encode keeper snapshot")
	}
	return out, nil
}

// Restore loads a snapshot into a storage that has not served any request yet;
// loading over live state is a contract violation.
func (s *Storage) Restore(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finalized.Load() {
		return perrors.New("cannot restore into a finalized storage")
	}
	if s.zxid.Load() != 0 {
		return perrors.New("cannot restore into a storage that already served requests")
	}

	var snap snapshot
	if err := codec.NewDecoderBytes(data, snapshotHandle).Decode(&snap); err != nil {
		return perrors.WithMessage(err, "decode keeper snapshot")
	}
	if _, ok := snap.Nodes[rootPath]; !ok {
		return perrors.New("snapshot has no root node")
	}

	tree := newBareTree()
	for path, sn := range snap.Nodes {
		n := newNode()
		n.Data = append([]byte(nil), sn.Data...)
		n.Ephemeral = sn.Ephemeral
		n.Sequential = sn.Sequential
		n.SeqNum = sn.SeqNum
		n.Stat = sn.Stat
		tree.Insert(path, n)
	}

	ephemerals := make(Ephemerals, len(snap.Ephemerals))
	for session, paths := range snap.Ephemerals {
		for _, path := range paths {
			if n := tree.Get(path); n == nil || !n.Ephemeral {
				return perrors.Errorf("snapshot ephemeral index names %q which is not an ephemeral node", path)
			}
			ephemerals.Add(session, path)
		}
	}

	s.tree = tree
	s.ephemerals = ephemerals
	s.zxid.Store(snap.Zxid)
	return nil
}
