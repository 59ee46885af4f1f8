package layout

import "testing"

func TestHasherDeterministic(t *testing.T) {
	h := NewHasher("s3cret")
	if h.Hash("1") != h.Hash("1") {
		t.Fatalf("相同输入应得到相同前缀")
	}
	if len(h.Hash("1")) != tenantPrefixLen {
		t.Fatalf("unexpected prefix length: %d", len(h.Hash("1")))
	}
}

func TestHasherSeparatesTenantsAndSecrets(t *testing.T) {
	a := NewHasher("secret-a")
	b := NewHasher("secret-b")

	if a.Hash("1") == a.Hash("2") {
		t.Fatalf("不同租户不应共享前缀")
	}
	if a.Hash("1") == b.Hash("1") {
		t.Fatalf("不同 secret 不应得到相同前缀")
	}
}

func TestHasherDegradedWithoutSecret(t *testing.T) {
	if !NewHasher("").Degraded() {
		t.Fatalf("空 secret 应标记为降级模式")
	}
	if NewHasher("x").Degraded() {
		t.Fatalf("配置 secret 后不应降级")
	}
}
