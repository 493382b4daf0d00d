package api

import (
	"net/http"

	"github.com/leadwire/leadwire/crm"
	"github.com/leadwire/leadwire/id"
)

func (h *Handler) createLead(w http.ResponseWriter, r *http.Request) {
	var in crm.LeadInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	lead, err := h.crmSvc.CreateLead(r.Context(), in, actorFromRequest(r))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, lead)
}

func (h *Handler) listLeads(w http.ResponseWriter, r *http.Request) {
	filter := crm.LeadFilter{
		Status:   queryParam(r, "status"),
		Priority: queryParam(r, "priority"),
		Company:  queryParam(r, "company"),
		Offset:   queryInt(r, "offset", 0),
		Limit:    queryInt(r, "limit", 50),
	}
	if s := queryParam(r, "assigned_to"); s != "" {
		userID, err := id.ParseUserID(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid user id")
			return
		}
		filter.AssignedTo = userID
	}

	leads, err := h.crmSvc.ListLeads(r.Context(), filter)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if leads == nil {
		leads = []*crm.Lead{}
	}
	writeJSON(w, http.StatusOK, leads)
}

func (h *Handler) updateLead(w http.ResponseWriter, r *http.Request) {
	leadID, ok := h.pathLeadID(w, r)
	if !ok {
		return
	}

	var in crm.LeadInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	lead, err := h.crmSvc.UpdateLead(r.Context(), leadID, in, actorFromRequest(r))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

func (h *Handler) deleteLead(w http.ResponseWriter, r *http.Request) {
	leadID, ok := h.pathLeadID(w, r)
	if !ok {
		return
	}

	if err := h.crmSvc.DeleteLead(r.Context(), leadID, actorFromRequest(r)); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) createInteraction(w http.ResponseWriter, r *http.Request) {
	leadID, ok := h.pathLeadID(w, r)
	if !ok {
		return
	}

	var in crm.InteractionInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	in.LeadID = leadID

	interaction, err := h.crmSvc.CreateInteraction(r.Context(), in, actorFromRequest(r))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, interaction)
}

func (h *Handler) pathLeadID(w http.ResponseWriter, r *http.Request) (id.ID, bool) {
	leadID, err := id.ParseLeadID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid lead id")
		return id.Nil, false
	}
	return leadID, true
}
