/*
   Copyright 2018-2019 Banco Bilbao Vizcaya Argentaria, S.A.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package cache

import "sync"

// RULock is a reader/upgrade/writer lock with three modes on one
// synchronizer:
//
//   - shared: any number of readers, excluded by exclusive mode;
//   - upgradeable: at most one holder, coexists with readers;
//   - exclusive: alone.
//
// The upgradeable holder may promote to exclusive with Upgrade, which
// waits for readers to drain while blocking new ones, and go back with
// Downgrade. The zero value is an unlocked lock.
type RULock struct {
	mu   sync.Mutex
	cond *sync.Cond

	readers   int
	upgrader  bool
	upgraded  bool
	upgrading bool
	writer    bool
}

func (l *RULock) init() {
	if l.cond == nil {
		l.cond = sync.NewCond(&l.mu)
	}
}

// RLock acquires shared mode.
func (l *RULock) RLock() {
	l.mu.Lock()
	l.init()
	for l.writer || l.upgraded || l.upgrading {
		l.cond.Wait()
	}
	l.readers++
	l.mu.Unlock()
}

// RUnlock releases shared mode.
func (l *RULock) RUnlock() {
	l.mu.Lock()
	l.init()
	l.readers--
	l.cond.Broadcast()
	l.mu.Unlock()
}

// ULock acquires upgradeable mode.
func (l *RULock) ULock() {
	l.mu.Lock()
	l.init()
	for l.writer || l.upgrader {
		l.cond.Wait()
	}
	l.upgrader = true
	l.mu.Unlock()
}

// UUnlock releases upgradeable mode. It also accepts an upgraded
// holder, releasing both the exclusive promotion and the upgradeable
// slot.
func (l *RULock) UUnlock() {
	l.mu.Lock()
	l.init()
	l.upgraded = false
	l.upgrader = false
	l.cond.Broadcast()
	l.mu.Unlock()
}

// Upgrade promotes the calling upgradeable holder to exclusive mode.
func (l *RULock) Upgrade() {
	l.mu.Lock()
	l.init()
	l.upgrading = true
	for l.readers > 0 {
		l.cond.Wait()
	}
	l.upgrading = false
	l.upgraded = true
	l.mu.Unlock()
}

// Downgrade demotes an upgraded holder back to upgradeable mode.
func (l *RULock) Downgrade() {
	l.mu.Lock()
	l.init()
	l.upgraded = false
	l.cond.Broadcast()
	l.mu.Unlock()
}

// Lock acquires exclusive mode directly, without going through
// upgradeable mode.
func (l *RULock) Lock() {
	l.mu.Lock()
	l.init()
	for l.writer || l.upgrader || l.upgrading || l.upgraded || l.readers > 0 {
		l.cond.Wait()
	}
	l.writer = true
	l.mu.Unlock()
}

// Unlock releases a direct exclusive hold.
func (l *RULock) Unlock() {
	l.mu.Lock()
	l.init()
	l.writer = false
	l.cond.Broadcast()
	l.mu.Unlock()
}
