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

package client

import (
	"github.com/dubbogo/go-zookeeper/zk"

	"mosn.io/testkeeper/coordination"
)

// errToZk translates a protocol error code into the go-zookeeper sentinel the
// pack's zk consumers compare against.
func errToZk(code coordination.Error) error {
	switch code {
	case coordination.OK:
		return nil
	case coordination.NoNode:
		return zk.ErrNoNode
	case coordination.NodeExists:
		return zk.ErrNodeExists
	case coordination.BadVersion:
		return zk.ErrBadVersion
	case coordination.NotEmpty:
		return zk.ErrNotEmpty
	case coordination.NoChildrenForEphemerals:
		return zk.ErrNoChildrenForEphemerals
	case coordination.SessionExpired:
		return zk.ErrSessionExpired
	case coordination.RuntimeInconsistency:
		return zk.ErrAPIError
	default:
		return zk.ErrUnknown
	}
}

func eventToZk(event coordination.EventType) zk.EventType {
	switch event {
	case coordination.EventCreated:
		return zk.EventNodeCreated
	case coordination.EventDeleted:
		return zk.EventNodeDeleted
	case coordination.EventChanged:
		return zk.EventNodeDataChanged
	case coordination.EventChild:
		return zk.EventNodeChildrenChanged
	case coordination.EventSession:
		return zk.EventSession
	default:
		return zk.EventNotWatching
	}
}

func stateToZk(state coordination.State) zk.State {
	switch state {
	case coordination.StateConnected:
		return zk.StateConnected
	case coordination.StateExpiredSession:
		return zk.StateExpired
	default:
		return zk.StateUnknown
	}
}

func statToZk(stat coordination.Stat) *zk.Stat {
	return &zk.Stat{
		Czxid:          stat.Czxid,
		Mzxid:          stat.Mzxid,
		Ctime:          stat.Ctime,
		Mtime:          stat.Mtime,
		Version:        stat.Version,
		Cversion:       stat.Cversion,
		Aversion:       stat.Aversion,
		EphemeralOwner: stat.EphemeralOwner,
		DataLength:     stat.DataLength,
		NumChildren:    stat.NumChildren,
		Pzxid:          stat.Czxid,
	}
}

func watchToZkEvent(w *coordination.WatchResponse) zk.Event {
	return zk.Event{
		Type:  eventToZk(w.Type),
		State: stateToZk(w.State),
		Path:  w.Path,
		Err:   errToZk(w.Err),
	}
}
