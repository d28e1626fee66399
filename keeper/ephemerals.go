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

import "sort"

// Ephemerals indexes the ephemeral paths owned by each session.
type Ephemerals map[int64]map[string]struct{}

func (e Ephemerals) Add(session int64, path string) {
	paths := e[session]
	if paths == nil {
		paths = make(map[string]struct{})
		e[session] = paths
	}
	paths[path] = struct{}{}
}

func (e Ephemerals) Remove(session int64, path string) {
	paths := e[session]
	if paths == nil {
		return
	}
	delete(paths, path)
	if len(paths) == 0 {
		delete(e, session)
	}
}

// Paths returns the session's ephemeral paths sorted, for deterministic
// teardown order.
func (e Ephemerals) Paths(session int64) []string {
	paths := make([]string, 0, len(e[session]))
	for p := range e[session] {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Take removes the session's entry and returns its sorted paths.
func (e Ephemerals) Take(session int64) []string {
	paths := e.Paths(session)
	delete(e, session)
	return paths
}

// Count returns the total number of indexed ephemeral paths.
func (e Ephemerals) Count() int {
	n := 0
	for _, paths := range e {
		n += len(paths)
	}
	return n
}
