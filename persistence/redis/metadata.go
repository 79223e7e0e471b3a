package redis

import (
	"context"

	rd "github.com/go-redis/redis/v9"
	"github.com/waypoint-labs/waypoint/metadata"
	"github.com/waypoint-labs/waypoint/model"
	"github.com/waypoint-labs/waypoint/persistence"
	"github.com/waypoint-labs/waypoint/util"
)

const PROCESS_DEF string = "PROCESS"
const BOT_DEF string = "BOT"

var _ metadata.Storage = new(redisMetadataStorage)

type redisMetadataStorage struct {
	*baseDao
	processEncoderDecoder util.EncoderDecoder[model.ProcessDefinition]
	botEncoderDecoder     util.EncoderDecoder[model.Bot]
}

func NewRedisMetadataStorage(conf Config) *redisMetadataStorage {
	return &redisMetadataStorage{
		baseDao:               newBaseDao(conf),
		processEncoderDecoder: util.NewJsonEncoderDecoder[model.ProcessDefinition](),
		botEncoderDecoder:     util.NewJsonEncoderDecoder[model.Bot](),
	}
}

func (rfd *redisMetadataStorage) SaveProcessDefinition(def model.ProcessDefinition) error {
	key := rfd.baseDao.getNamespaceKey(PROCESS_DEF, def.Name)
	ctx := context.Background()
	data, err := rfd.processEncoderDecoder.Encode(def)
	if err != nil {
		return err
	}
	err = rfd.redisClient.Set(ctx, key, data, 0).Err()
	if err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (rfd *redisMetadataStorage) DeleteProcessDefinition(name string) error {
	key := rfd.baseDao.getNamespaceKey(PROCESS_DEF, name)
	ctx := context.Background()
	err := rfd.redisClient.Del(ctx, key).Err()
	if err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (rfd *redisMetadataStorage) GetProcessDefinition(name string) (*model.ProcessDefinition, error) {
	key := rfd.baseDao.getNamespaceKey(PROCESS_DEF, name)
	ctx := context.Background()
	val, err := rfd.redisClient.Get(ctx, key).Result()
	if err != nil {
		if err == rd.Nil {
			return nil, persistence.StorageLayerError{Message: "process definition " + name + " not found"}
		}
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return rfd.processEncoderDecoder.Decode([]byte(val))
}

func (rfd *redisMetadataStorage) ListProcessDefinitions() ([]model.ProcessDefinition, error) {
	return listByPrefix(rfd.baseDao, rfd.baseDao.getNamespaceKey(PROCESS_DEF)+":*", rfd.processEncoderDecoder)
}

func (rfd *redisMetadataStorage) SaveBotDefinition(bot model.Bot) error {
	key := rfd.baseDao.getNamespaceKey(BOT_DEF, bot.Id)
	ctx := context.Background()
	data, err := rfd.botEncoderDecoder.Encode(bot)
	if err != nil {
		return err
	}
	err = rfd.redisClient.Set(ctx, key, data, 0).Err()
	if err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (rfd *redisMetadataStorage) DeleteBotDefinition(id string) error {
	key := rfd.baseDao.getNamespaceKey(BOT_DEF, id)
	ctx := context.Background()
	err := rfd.redisClient.Del(ctx, key).Err()
	if err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (rfd *redisMetadataStorage) GetBotDefinition(id string) (*model.Bot, error) {
	key := rfd.baseDao.getNamespaceKey(BOT_DEF, id)
	ctx := context.Background()
	val, err := rfd.redisClient.Get(ctx, key).Result()
	if err != nil {
		if err == rd.Nil {
			return nil, persistence.StorageLayerError{Message: "bot " + id + " not found"}
		}
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return rfd.botEncoderDecoder.Decode([]byte(val))
}

func (rfd *redisMetadataStorage) ListBotDefinitions() ([]model.Bot, error) {
	return listByPrefix(rfd.baseDao, rfd.baseDao.getNamespaceKey(BOT_DEF)+":*", rfd.botEncoderDecoder)
}

func listByPrefix[T any](dao *baseDao, pattern string, encdec util.EncoderDecoder[T]) ([]T, error) {
	ctx := context.Background()
	var out []T
	iter := dao.redisClient.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		val, err := dao.redisClient.Get(ctx, iter.Val()).Result()
		if err != nil {
			if err == rd.Nil {
				continue
			}
			return nil, persistence.StorageLayerError{Message: err.Error()}
		}
		decoded, err := encdec.Decode([]byte(val))
		if err != nil {
			return nil, err
		}
		out = append(out, *decoded)
	}
	if err := iter.Err(); err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return out, nil
}
