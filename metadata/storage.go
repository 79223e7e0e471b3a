package metadata

import "github.com/waypoint-labs/waypoint/model"

type Storage interface {
	SaveProcessDefinition(def model.ProcessDefinition) error
	DeleteProcessDefinition(name string) error
	GetProcessDefinition(name string) (*model.ProcessDefinition, error)
	ListProcessDefinitions() ([]model.ProcessDefinition, error)

	SaveBotDefinition(bot model.Bot) error
	DeleteBotDefinition(id string) error
	GetBotDefinition(id string) (*model.Bot, error)
	ListBotDefinitions() ([]model.Bot, error)
}
