package metadata

import (
	"sync"

	"github.com/waypoint-labs/waypoint/model"
	"github.com/waypoint-labs/waypoint/persistence"
)

var _ Storage = new(inmemStorage)

// inmemStorage keeps definitions in process memory, for tests and single-node
// deployments without a backing store.
type inmemStorage struct {
	mu        sync.RWMutex
	processes map[string]model.ProcessDefinition
	bots      map[string]model.Bot
}

func NewInmemStorage() Storage {
	return &inmemStorage{
		processes: make(map[string]model.ProcessDefinition),
		bots:      make(map[string]model.Bot),
	}
}

func (s *inmemStorage) SaveProcessDefinition(def model.ProcessDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processes[def.Name] = def
	return nil
}

func (s *inmemStorage) DeleteProcessDefinition(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.processes[name]; !ok {
		return persistence.StorageLayerError{Message: "process definition " + name + " not found"}
	}
	delete(s.processes, name)
	return nil
}

func (s *inmemStorage) GetProcessDefinition(name string) (*model.ProcessDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	def, ok := s.processes[name]
	if !ok {
		return nil, persistence.StorageLayerError{Message: "process definition " + name + " not found"}
	}
	return &def, nil
}

func (s *inmemStorage) ListProcessDefinitions() ([]model.ProcessDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.ProcessDefinition, 0, len(s.processes))
	for _, def := range s.processes {
		out = append(out, def)
	}
	return out, nil
}

func (s *inmemStorage) SaveBotDefinition(bot model.Bot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bots[bot.Id] = bot
	return nil
}

func (s *inmemStorage) DeleteBotDefinition(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bots[id]; !ok {
		return persistence.StorageLayerError{Message: "bot " + id + " not found"}
	}
	delete(s.bots, id)
	return nil
}

func (s *inmemStorage) GetBotDefinition(id string) (*model.Bot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bot, ok := s.bots[id]
	if !ok {
		return nil, persistence.StorageLayerError{Message: "bot " + id + " not found"}
	}
	return &bot, nil
}

func (s *inmemStorage) ListBotDefinitions() ([]model.Bot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Bot, 0, len(s.bots))
	for _, bot := range s.bots {
		out = append(out, bot)
	}
	return out, nil
}
