package redis

import "github.com/redis/go-redis/v9"

// tapScript increments coins by tapValue and taps by one in a single step.
// KEYS[1] player hash, KEYS[2] taps index; ARGV[1] nickname.
var tapScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return false
end
local tapValue = tonumber(redis.call('HGET', KEYS[1], 'tapValue') or '1')
redis.call('HINCRBY', KEYS[1], 'coins', tapValue)
local taps = redis.call('HINCRBY', KEYS[1], 'taps', 1)
redis.call('ZADD', KEYS[2], taps, ARGV[1])
return redis.call('HGETALL', KEYS[1])
`)

// autoIncomeScript credits autoPerSec to every member of the auto index.
// KEYS[1] auto index; ARGV[1] player key prefix.
var autoIncomeScript = redis.NewScript(`
local credited = 0
for _, nickname in ipairs(redis.call('SMEMBERS', KEYS[1])) do
	local key = ARGV[1] .. nickname
	local rate = tonumber(redis.call('HGET', key, 'autoPerSec') or '0')
	if rate > 0 then
		redis.call('HINCRBY', key, 'coins', rate)
		credited = credited + 1
	end
end
return credited
`)
