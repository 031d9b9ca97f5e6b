package clients

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vastra-erp/vastra-erp/internal/shared"
)

type memoryRepo struct {
	clients map[int64]Client
	nextID  int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{clients: map[int64]Client{}}
}

func (m *memoryRepo) GetClient(_ context.Context, id int64) (Client, error) {
	c, ok := m.clients[id]
	if !ok || !c.IsActive {
		return Client{}, ErrClientNotFound
	}
	return c, nil
}

func (m *memoryRepo) ClientExists(_ context.Context, id int64) (bool, error) {
	c, ok := m.clients[id]
	return ok && c.IsActive, nil
}

func (m *memoryRepo) CreateClient(_ context.Context, input ClientInput) (Client, error) {
	m.nextID++
	c := Client{ID: m.nextID, Name: input.Name, Phone: input.Phone, City: input.City, IsActive: true}
	m.clients[c.ID] = c
	return c, nil
}

func (m *memoryRepo) UpdateClient(_ context.Context, id int64, input ClientInput) (Client, error) {
	c, ok := m.clients[id]
	if !ok || !c.IsActive {
		return Client{}, ErrClientNotFound
	}
	c.Name = input.Name
	c.Phone = input.Phone
	c.City = input.City
	m.clients[id] = c
	return c, nil
}

func (m *memoryRepo) DeactivateClient(_ context.Context, id int64) error {
	c, ok := m.clients[id]
	if !ok || !c.IsActive {
		return ErrClientNotFound
	}
	c.IsActive = false
	m.clients[id] = c
	return nil
}

func (m *memoryRepo) ListClients(_ context.Context, _ string, _ int) ([]Client, error) {
	out := []Client{}
	for _, c := range m.clients {
		if c.IsActive {
			out = append(out, c)
		}
	}
	return out, nil
}

func TestCreateClientRequiresName(t *testing.T) {
	svc := NewService(newMemoryRepo())
	_, err := svc.CreateClient(context.Background(), ClientInput{Name: "   "})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestIsPresentTracksLifecycle(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	present, err := svc.IsPresent(ctx, 42)
	require.NoError(t, err)
	require.False(t, present)

	client, err := svc.CreateClient(ctx, ClientInput{Name: "Meera Traders", Phone: "9876500000", City: "Salem"})
	require.NoError(t, err)

	present, err = svc.IsPresent(ctx, client.ID)
	require.NoError(t, err)
	require.True(t, present)

	require.NoError(t, svc.DeactivateClient(ctx, client.ID))
	present, err = svc.IsPresent(ctx, client.ID)
	require.NoError(t, err)
	require.False(t, present)
}

func TestUpdateClient(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	client, err := svc.CreateClient(ctx, ClientInput{Name: "Meera Traders"})
	require.NoError(t, err)

	updated, err := svc.UpdateClient(ctx, client.ID, ClientInput{Name: "Meera Textiles", City: "Erode"})
	require.NoError(t, err)
	require.Equal(t, "Meera Textiles", updated.Name)
	require.Equal(t, "Erode", updated.City)

	_, err = svc.UpdateClient(ctx, 999, ClientInput{Name: "Ghost"})
	require.ErrorIs(t, err, shared.ErrNotFound)
}
