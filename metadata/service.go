package metadata

import (
	"fmt"

	"github.com/waypoint-labs/waypoint/graph"
	"github.com/waypoint-labs/waypoint/model"
)

type Service interface {
	GetProcess(name string) (*graph.ParsedGraph, []byte, error)
	Validate(doc []byte) error
	GetStorage() Storage
}

type ServiceImpl struct {
	storage Storage
	cache   *graph.DefinitionCache
}

func NewService(storage Storage, cache *graph.DefinitionCache) Service {
	return &ServiceImpl{
		storage: storage,
		cache:   cache,
	}
}

// GetProcess loads a stored definition by name and returns both the parsed
// graph and the raw document it was parsed from.
func (s *ServiceImpl) GetProcess(name string) (*graph.ParsedGraph, []byte, error) {
	def, err := s.storage.GetProcessDefinition(name)
	if err != nil {
		return nil, nil, err
	}
	parsed, err := s.cache.GetDefinitions(def.Document)
	if err != nil {
		return nil, nil, err
	}
	return parsed, def.Document, nil
}

// Validate parses the document and runs the structural checks a definition
// must pass before it is accepted for storage.
func (s *ServiceImpl) Validate(doc []byte) error {
	parsed, err := graph.Parse(doc)
	if err != nil {
		return err
	}
	startCapable := 0
	for _, proc := range parsed.Processes {
		if !proc.IsExecutable {
			continue
		}
		if len(proc.StartElements()) > 0 {
			startCapable++
		}
	}
	if startCapable == 0 {
		return fmt.Errorf("no executable process with a start element")
	}
	for _, proc := range parsed.Processes {
		for _, el := range proc.Elements {
			if err := s.validateElement(parsed, el); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *ServiceImpl) validateElement(parsed *graph.ParsedGraph, el *graph.Element) error {
	switch el.Kind {
	case graph.ELEMENT_SEQUENCE_FLOW:
		if parsed.ElementById(el.SourceRef) == nil {
			return fmt.Errorf("sequence flow %s references unknown source %s", el.Id, el.SourceRef)
		}
		if parsed.ElementById(el.TargetRef) == nil {
			return fmt.Errorf("sequence flow %s references unknown target %s", el.Id, el.TargetRef)
		}
	case graph.ELEMENT_BOUNDARY_EVENT:
		attached := parsed.ElementById(el.AttachedToRef)
		if attached == nil {
			return fmt.Errorf("boundary event %s attached to unknown activity %s", el.Id, el.AttachedToRef)
		}
		if attached.IsEvent() || attached.Kind == graph.ELEMENT_SEQUENCE_FLOW {
			return fmt.Errorf("boundary event %s attached to non-activity %s", el.Id, el.AttachedToRef)
		}
	case graph.ELEMENT_CALL_ACTIVITY:
		if len(el.CalledElement) == 0 {
			return fmt.Errorf("call activity %s has no called element", el.Id)
		}
	}
	return nil
}

// ValidateBot checks a bot definition before registration.
func ValidateBot(bot model.Bot) error {
	if len(bot.Id) == 0 {
		return fmt.Errorf("bot id is required")
	}
	switch bot.Role {
	case model.BOT_ROLE_COORDINATOR, model.BOT_ROLE_MONITOR, model.BOT_ROLE_SPECIALIST:
	default:
		return fmt.Errorf("unknown bot role %s", bot.Role)
	}
	for i, behavior := range bot.Behaviors {
		if len(behavior.Trigger) == 0 {
			return fmt.Errorf("behavior %d of bot %s has no trigger", i, bot.Id)
		}
		switch behavior.Action.Type {
		case model.BOT_ACTION_ROUTINE, model.BOT_ACTION_INVOKE, model.BOT_ACTION_EMIT:
		default:
			return fmt.Errorf("behavior %d of bot %s has unknown action type %s", i, bot.Id, behavior.Action.Type)
		}
		if behavior.Progression == model.BEHAVIOR_PROGRESSION_CONDITIONAL && len(behavior.ProgressionExpression) == 0 {
			return fmt.Errorf("behavior %d of bot %s is conditional without an expression", i, bot.Id)
		}
	}
	return nil
}

func (s *ServiceImpl) GetStorage() Storage {
	return s.storage
}
