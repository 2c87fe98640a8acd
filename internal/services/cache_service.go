package services

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// CacheService — TTL-кеш ответов с явной инвалидацией по бакетам.
// Ключи группируются в бакеты (комната, курс), мутация комнаты сбрасывает
// весь бакет. Живет в сервере, а не в глобальной переменной.
type CacheService struct {
	c       *gocache.Cache
	mu      sync.Mutex
	buckets map[string][]string
}

func NewCacheService(defaultTTL, cleanupInterval time.Duration) *CacheService {
	return &CacheService{
		c:       gocache.New(defaultTTL, cleanupInterval),
		buckets: make(map[string][]string),
	}
}

func (s *CacheService) Get(key string) ([]byte, bool) {
	v, ok := s.c.Get(key)
	if !ok {
		return nil, false
	}
	data, ok := v.([]byte)
	return data, ok
}

// Set кладет значение и запоминает ключ в бакете. Запись в кеш и учет
// ключа идут под одним мьютексом, иначе конкурентный InvalidateBucket
// может пропустить свежий ключ и оставить его жить до TTL.
func (s *CacheService) Set(bucket, key string, data []byte, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.c.Set(key, data, ttl)
	for _, k := range s.buckets[bucket] {
		if k == key {
			return
		}
	}
	s.buckets[bucket] = append(s.buckets[bucket], key)
}

// InvalidateBucket удаляет все ключи бакета
func (s *CacheService) InvalidateBucket(bucket string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, k := range s.buckets[bucket] {
		s.c.Delete(k)
	}
	delete(s.buckets, bucket)
}

func (s *CacheService) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buckets = make(map[string][]string)
	s.c.Flush()
}

func BucketCourseRooms(courseID string) string { return "course_rooms:" + courseID }
func BucketRoomMessages(roomID string) string  { return "room_messages:" + roomID }
