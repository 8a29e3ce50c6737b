// Package ports tracks open serial ports: a concurrent registry of
// managed pumps and a hotplug watcher polling the system port list.
package ports

import (
	"fmt"

	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/dkaukov/usb-serial-for-android/pkg/serialio"
)

// ManagedPort pairs an open port with the pump servicing it.
type ManagedPort struct {
	Name    string
	Port    serialio.AsyncPort
	Manager *serialio.IOManager
}

// Registry is a concurrent map of port name to managed pump. All
// methods are safe for concurrent use.
type Registry struct {
	m cmap.ConcurrentMap[string, *ManagedPort]
}

func NewRegistry() *Registry {
	return &Registry{m: cmap.New[*ManagedPort]()}
}

// Add registers a managed port under name. Fails if the name is
// already registered.
func (r *Registry) Add(name string, port serialio.AsyncPort, manager *serialio.IOManager) error {
	entry := &ManagedPort{Name: name, Port: port, Manager: manager}
	if !r.m.SetIfAbsent(name, entry) {
		return fmt.Errorf("port %q already registered", name)
	}
	return nil
}

func (r *Registry) Get(name string) (*ManagedPort, bool) {
	return r.m.Get(name)
}

// Remove unregisters and returns the managed port, if present. The
// caller remains responsible for stopping the pump and closing the
// port.
func (r *Registry) Remove(name string) (*ManagedPort, bool) {
	return r.m.Pop(name)
}

func (r *Registry) Count() int {
	return r.m.Count()
}

func (r *Registry) Names() []string {
	return r.m.Keys()
}

// Each calls fn for a snapshot of every registered port.
func (r *Registry) Each(fn func(*ManagedPort)) {
	for item := range r.m.IterBuffered() {
		fn(item.Val)
	}
}
