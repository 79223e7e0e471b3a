package cassandra

import (
	"github.com/waypoint-labs/waypoint/metadata"
	"github.com/waypoint-labs/waypoint/model"
	"github.com/waypoint-labs/waypoint/persistence"
	"github.com/waypoint-labs/waypoint/util"
)

var _ metadata.Storage = new(cassandraMetadataStorage)

type cassandraMetadataStorage struct {
	*baseDao
	processEncoderDecoder util.EncoderDecoder[model.ProcessDefinition]
	botEncoderDecoder     util.EncoderDecoder[model.Bot]
}

func NewCassandraMetadataStorage(conf Config) *cassandraMetadataStorage {
	return &cassandraMetadataStorage{
		baseDao:               NewBaseDao(conf),
		processEncoderDecoder: util.NewJsonEncoderDecoder[model.ProcessDefinition](),
		botEncoderDecoder:     util.NewJsonEncoderDecoder[model.Bot](),
	}
}

func (rfd *cassandraMetadataStorage) SaveProcessDefinition(def model.ProcessDefinition) error {
	data, err := rfd.processEncoderDecoder.Encode(def)
	if err != nil {
		return err
	}
	if err := rfd.Session.Query("CREATE TABLE IF NOT EXISTS PROCESS(name text PRIMARY KEY, definition text)").Exec(); err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	if err := rfd.Session.Query("INSERT INTO PROCESS(name, definition) VALUES(?,?)", def.Name, data).Exec(); err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (rfd *cassandraMetadataStorage) DeleteProcessDefinition(name string) error {
	if err := rfd.Session.Query("DELETE FROM PROCESS WHERE name=?", name).Exec(); err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (rfd *cassandraMetadataStorage) GetProcessDefinition(name string) (*model.ProcessDefinition, error) {
	var defs []*model.ProcessDefinition
	itr := rfd.Session.Query("SELECT * FROM PROCESS WHERE name=?", name).Iter()
	m := map[string]interface{}{}
	for itr.MapScan(m) {
		def, err := rfd.processEncoderDecoder.Decode([]byte(m["definition"].(string)))
		if err != nil {
			continue
		}
		defs = append(defs, def)
		m = map[string]interface{}{}
	}
	if len(defs) == 0 {
		return nil, persistence.StorageLayerError{Message: "process definition " + name + " not found"}
	}
	return defs[0], nil
}

func (rfd *cassandraMetadataStorage) ListProcessDefinitions() ([]model.ProcessDefinition, error) {
	var defs []model.ProcessDefinition
	itr := rfd.Session.Query("SELECT * FROM PROCESS").Iter()
	m := map[string]interface{}{}
	for itr.MapScan(m) {
		def, err := rfd.processEncoderDecoder.Decode([]byte(m["definition"].(string)))
		if err != nil {
			continue
		}
		defs = append(defs, *def)
		m = map[string]interface{}{}
	}
	return defs, nil
}

func (rfd *cassandraMetadataStorage) SaveBotDefinition(bot model.Bot) error {
	data, err := rfd.botEncoderDecoder.Encode(bot)
	if err != nil {
		return err
	}
	if err := rfd.Session.Query("CREATE TABLE IF NOT EXISTS BOT(id text PRIMARY KEY, definition text)").Exec(); err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	if err := rfd.Session.Query("INSERT INTO BOT(id, definition) VALUES(?,?)", bot.Id, data).Exec(); err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (rfd *cassandraMetadataStorage) DeleteBotDefinition(id string) error {
	if err := rfd.Session.Query("DELETE FROM BOT WHERE id=?", id).Exec(); err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (rfd *cassandraMetadataStorage) GetBotDefinition(id string) (*model.Bot, error) {
	var bots []*model.Bot
	itr := rfd.Session.Query("SELECT * FROM BOT WHERE id=?", id).Iter()
	m := map[string]interface{}{}
	for itr.MapScan(m) {
		bot, err := rfd.botEncoderDecoder.Decode([]byte(m["definition"].(string)))
		if err != nil {
			continue
		}
		bots = append(bots, bot)
		m = map[string]interface{}{}
	}
	if len(bots) == 0 {
		return nil, persistence.StorageLayerError{Message: "bot " + id + " not found"}
	}
	return bots[0], nil
}

func (rfd *cassandraMetadataStorage) ListBotDefinitions() ([]model.Bot, error) {
	var bots []model.Bot
	itr := rfd.Session.Query("SELECT * FROM BOT").Iter()
	m := map[string]interface{}{}
	for itr.MapScan(m) {
		bot, err := rfd.botEncoderDecoder.Decode([]byte(m["definition"].(string)))
		if err != nil {
			continue
		}
		bots = append(bots, *bot)
		m = map[string]interface{}{}
	}
	return bots, nil
}
