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
	"github.com/jinzhu/copier"

	"mosn.io/pkg/log"

	"mosn.io/testkeeper/coordination"
)

// Node is one entry of the tree. SeqNum advances on every child-creation
// attempt that reaches the creation stage, sequential or not.
type Node struct {
	Data       []byte
	Ephemeral  bool
	Sequential bool
	SeqNum     int32
	Stat       coordination.Stat
}

func newNode() *Node {
	return &Node{}
}

// clone takes a deep snapshot of the node for undo closures.
func (n *Node) clone() *Node {
	cp := &Node{}
	if err := copier.CopyWithOption(cp, n, copier.Option{DeepCopy: true}); err != nil {
		log.DefaultLogger.Fatalf("[keeper] node snapshot failed: %v", err)
	}
	return cp
}
